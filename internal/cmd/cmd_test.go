package cmd

import (
	"testing"
	"time"

	"quickroute/internal/config"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs float64
		want string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{61, "1:01"},
		{754, "12:34"},
		{3600, "1:00:00"},
		{5025, "1:23:45"},
		{3600*11 + 62, "11:01:02"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.secs); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestParseTimeFlag(t *testing.T) {
	got, err := parseTimeFlag("2026-04-12")
	if err != nil {
		t.Fatalf("parseTimeFlag: %v", err)
	}
	want := time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseTimeFlag(2026-04-12) = %v, want %v", got, want)
	}

	got, err = parseTimeFlag("2026-04-12T10:30:00Z")
	if err != nil {
		t.Fatalf("parseTimeFlag: %v", err)
	}
	want = time.Date(2026, 4, 12, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseTimeFlag(RFC 3339) = %v, want %v", got, want)
	}

	if got, err := parseTimeFlag(""); err != nil || !got.IsZero() {
		t.Errorf("parseTimeFlag(\"\") = %v, %v, want zero time", got, err)
	}

	if _, err := parseTimeFlag("last tuesday"); err == nil {
		t.Error("parseTimeFlag(last tuesday) succeeded, want error")
	}
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"OK Linné": 2, "Stora Tuna": 1, "Attunda": 3}
	got := sortedKeys(m)
	want := []string{"Attunda", "OK Linné", "Stora Tuna"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sortedKeys[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStorageConfig(t *testing.T) {
	config.StorageBackend = "postgres"
	config.SQLitePath = "archive.db"
	config.PostgresHost = "db.internal"
	config.PostgresPort = 5433
	config.PostgresDB = "tracks"
	config.PostgresUser = "runner"
	config.PostgresPassword = "secret"

	cfg := storageConfig()
	if cfg.Backend != "postgres" {
		t.Errorf("Backend = %q, want postgres", cfg.Backend)
	}
	if cfg.SQLitePath != "archive.db" {
		t.Errorf("SQLitePath = %q, want archive.db", cfg.SQLitePath)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 5433 {
		t.Errorf("Postgres = %+v, want db.internal:5433", cfg.Postgres)
	}
	if cfg.Postgres.User != "runner" || cfg.Postgres.Password != "secret" {
		t.Errorf("Postgres credentials = %q/%q", cfg.Postgres.User, cfg.Postgres.Password)
	}
}
