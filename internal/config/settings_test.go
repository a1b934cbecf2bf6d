package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSettings_Valid(t *testing.T) {
	content := `
[logger]
level = "debug"

[review]
format = "sarif"
min_confidence = 80
workers = 6
exclude = ["generated/**", "*.pb.go"]
deep_secrets = true
scoping_field = "org_id"

[issue_log]
enabled = false
dir = "/var/log/reviewgate"
`
	path := writeTemp(t, content)
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}

	if s.Review.Format != "sarif" {
		t.Errorf("format: got %q, want sarif", s.Review.Format)
	}
	if s.Review.MinConfidence != 80 {
		t.Errorf("min_confidence: got %d, want 80", s.Review.MinConfidence)
	}
	if s.Review.Workers != 6 {
		t.Errorf("workers: got %d, want 6", s.Review.Workers)
	}
	if len(s.Review.Exclude) != 2 {
		t.Errorf("exclude: got %v, want 2 entries", s.Review.Exclude)
	}
	if !s.Review.DeepSecrets {
		t.Error("deep_secrets: got false, want true")
	}
	if s.Review.ScopingField != "org_id" {
		t.Errorf("scoping_field: got %q, want org_id", s.Review.ScopingField)
	}
	if s.IssueLog.Enabled {
		t.Error("issue_log.enabled: got true, want false")
	}
	if s.IssueLog.Dir != "/var/log/reviewgate" {
		t.Errorf("issue_log.dir: got %q", s.IssueLog.Dir)
	}
	if s.Path != path {
		t.Errorf("path: got %q, want %q", s.Path, path)
	}
	if lvl, err := s.SlogLevel(); err != nil || lvl != slog.LevelDebug {
		t.Errorf("level: got %v (%v), want debug", lvl, err)
	}
}

func TestLoadSettings_PartialKeepsDefaults(t *testing.T) {
	path := writeTemp(t, "[review]\nworkers = 12\n")
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}

	if s.Review.Workers != 12 {
		t.Errorf("workers: got %d, want 12", s.Review.Workers)
	}
	if s.Review.MinConfidence != 70 {
		t.Errorf("min_confidence: got %d, want default 70", s.Review.MinConfidence)
	}
	if !s.IssueLog.Enabled {
		t.Error("issue_log.enabled: got false, want default true")
	}
	if s.Review.Format != "table" {
		t.Errorf("format: got %q, want table", s.Review.Format)
	}
}

func TestLoadSettings_InvalidTOML(t *testing.T) {
	path := writeTemp(t, "[review\nworkers = ")
	if _, err := LoadSettings(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestLoadSettings_MissingExplicitFile(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for a missing explicit settings file")
	}
}

func TestLocateAndLoadSettings_Precedence(t *testing.T) {
	flagPath := writeTemp(t, "[review]\nworkers = 1\n")
	envPath := writeTemp(t, "[review]\nworkers = 2\n")
	t.Setenv(EnvConfig, envPath)

	s, err := LocateAndLoadSettings(flagPath)
	if err != nil {
		t.Fatal(err)
	}
	if s.Review.Workers != 1 {
		t.Errorf("flag path: got workers %d, want 1", s.Review.Workers)
	}

	s, err = LocateAndLoadSettings("")
	if err != nil {
		t.Fatal(err)
	}
	if s.Review.Workers != 2 {
		t.Errorf("env path: got workers %d, want 2", s.Review.Workers)
	}
}

func TestLocateAndLoadSettings_LocalFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, localSettingsFile), []byte("[review]\nworkers = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfig, "")
	t.Chdir(dir)

	s, err := LocateAndLoadSettings("")
	if err != nil {
		t.Fatal(err)
	}
	if s.Review.Workers != 3 {
		t.Errorf("local file: got workers %d, want 3", s.Review.Workers)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelWarn, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelWarn, true},
	}
	for _, tt := range tests {
		s := &Settings{Logger: Logger{Level: tt.in}}
		got, err := s.SlogLevel()
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
