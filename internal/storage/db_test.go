package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		store, err := OpenStore(ctx, Config{
			Backend:    "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "dispatch.db"),
		})
		require.NoError(t, err)
		defer store.Close()

		_, ok := store.(*SQLiteDB)
		assert.True(t, ok, "expected *SQLiteDB, got %T", store)
	})

	t.Run("empty backend defaults to sqlite", func(t *testing.T) {
		store, err := OpenStore(ctx, Config{
			SQLitePath: filepath.Join(t.TempDir(), "dispatch.db"),
		})
		require.NoError(t, err)
		defer store.Close()

		_, ok := store.(*SQLiteDB)
		assert.True(t, ok, "expected *SQLiteDB, got %T", store)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := OpenStore(ctx, Config{Backend: "mongodb"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mongodb")
	})
}

func TestContentHash(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}

	fromPayload := contentHash(payload, `{"version":"2.3.0.0"}`)
	assert.Len(t, fromPayload, 64)

	// Same payload hashes the same regardless of the document.
	assert.Equal(t, fromPayload, contentHash(payload, `{}`))

	// Without a payload the document JSON identifies the track.
	fromJSON := contentHash(nil, `{"version":"2.3.0.0"}`)
	assert.Len(t, fromJSON, 64)
	assert.NotEqual(t, fromPayload, fromJSON)
	assert.NotEqual(t, fromJSON, contentHash(nil, `{"version":"2.4.0.0"}`))
}

func TestOrderField(t *testing.T) {
	tests := []struct {
		requested string
		want      string
	}{
		{"start_time", "start_time"},
		{"distance_meters", "distance_meters"},
		{"duration_seconds", "duration_seconds"},
		{"name", "name"},
		{"imported_at", "imported_at"},
		{"", "id"},
		{"club; DROP TABLE tracks", "id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, orderField(tt.requested), "orderField(%q)", tt.requested)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, "quickroute.db", cfg.SQLitePath)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 9000, cfg.ClickHouse.Port)
}
