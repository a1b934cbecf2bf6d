package issuelog

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/reviewgate/internal/scan"
)

// Count is one group of a summary.
type Count struct {
	Key      string `json:"key"`
	Total    int    `json:"total"`
	Critical int    `json:"critical"`
}

// Summary groups logged findings.
type Summary struct {
	Records int     `json:"records"`
	Runs    int     `json:"runs"`
	ByRule  []Count `json:"by_rule"`
	ByFile  []Count `json:"by_file"`
	ByDay   []Count `json:"by_day"`
}

const schema = `CREATE TABLE issues (
	run_id     TEXT NOT NULL,
	day        TEXT NOT NULL,
	rule       TEXT NOT NULL,
	file       TEXT NOT NULL,
	critical   INTEGER NOT NULL
)`

// Summarize loads records into an in-memory database and returns counts by
// rule and by file (largest first, at most top each; top <= 0 means all)
// and by day (oldest first).
func Summarize(ctx context.Context, records []Record, top int) (*Summary, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open summary db: %w", err)
	}
	defer func() { _ = db.Close() }()
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create summary table: %w", err)
	}
	if err := load(ctx, db, records); err != nil {
		return nil, err
	}

	s := &Summary{Records: len(records), ByRule: []Count{}, ByFile: []Count{}, ByDay: []Count{}}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT run_id) FROM issues`).Scan(&s.Runs); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	limit := -1
	if top > 0 {
		limit = top
	}
	if s.ByRule, err = group(ctx, db, "rule", "total DESC, name", limit); err != nil {
		return nil, err
	}
	if s.ByFile, err = group(ctx, db, "file", "total DESC, name", limit); err != nil {
		return nil, err
	}
	if s.ByDay, err = group(ctx, db, "day", "name", -1); err != nil {
		return nil, err
	}
	return s, nil
}

func load(ctx context.Context, db *sql.DB, records []Record) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO issues (run_id, day, rule, file, critical) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		critical := 0
		if r.Severity == scan.SeverityCritical {
			critical = 1
		}
		if _, err := stmt.ExecContext(ctx, r.RunID, r.Time.UTC().Format(dateLayout), r.Rule, r.File, critical); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

// group is only called with fixed column names and orderings.
func group(ctx context.Context, db *sql.DB, column, order string, limit int) ([]Count, error) {
	q := fmt.Sprintf(`SELECT %s AS name, COUNT(*) AS total, SUM(critical) FROM issues GROUP BY %s ORDER BY %s LIMIT ?`,
		column, column, order)
	rows, err := db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("group by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	out := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Key, &c.Total, &c.Critical); err != nil {
			return nil, fmt.Errorf("scan %s group: %w", column, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("group by %s: %w", column, err)
	}
	return out, nil
}
