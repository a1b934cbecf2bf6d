package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ppiankov/reviewgate/internal/scan"
)

// WriteJSON writes the result as an indented JSON document.
func WriteJSON(w io.Writer, res *scan.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
