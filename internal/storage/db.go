// Package storage provides persistent archives for decoded tracks.
// The SQLite and PostgreSQL backends implement the same Store
// interface; ClickHouse holds flattened waypoint samples for
// analytics and is written to separately.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"quickroute/internal/extractor"
)

// Config holds connection settings for every backend.
type Config struct {
	Backend    string // "sqlite" or "postgres"
	SQLitePath string
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
}

// DefaultConfig returns a configuration with local development settings.
func DefaultConfig() Config {
	return Config{
		Backend:    "sqlite",
		SQLitePath: "quickroute.db",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "quickroute",
			User:     "quickroute",
			Password: "quickroute",
		},
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "quickroute",
			User:     "default",
			Password: "",
		},
	}
}

// Track is one archived track with its derived summary values and the
// decoded document as JSON.
type Track struct {
	ID             int64             `json:"id"`
	Source         string            `json:"source"`
	ImportedAt     time.Time         `json:"imported_at"`
	ContentHash    string            `json:"content_hash"`
	Version        string            `json:"version,omitempty"`
	Name           string            `json:"name,omitempty"`
	Club           string            `json:"club,omitempty"`
	Description    string            `json:"description,omitempty"`
	StartTime      *time.Time        `json:"start_time,omitempty"`
	EndTime        *time.Time        `json:"end_time,omitempty"`
	DurationSecs   float64           `json:"duration_seconds"`
	DistanceMeters float64           `json:"distance_meters"`
	SessionCount   int               `json:"session_count"`
	SegmentCount   int               `json:"segment_count"`
	WaypointCount  int               `json:"waypoint_count"`
	LapCount       int               `json:"lap_count"`
	MaxHeartRate   int               `json:"max_heart_rate,omitempty"`
	AvgHeartRate   int               `json:"avg_heart_rate,omitempty"`
	Bounds         *extractor.Bounds `json:"bounds,omitempty"`
	DocumentJSON   string            `json:"-"`
}

// InsertParams contains the parameters for archiving a track.
type InsertParams struct {
	Source       string
	Summary      extractor.TrackSummary
	DocumentJSON string
	Payload      []byte // raw extracted bytes, kept for re-decoding
}

// QueryParams contains filtering options for listing tracks.
type QueryParams struct {
	ID          int64     // Filter by specific track ID.
	Name        string    // Filter by name (LIKE match).
	Club        string    // Filter by club (exact match).
	Since       time.Time // Only tracks starting at or after this time.
	Until       time.Time // Only tracks starting before this time.
	MinDistance float64   // Minimum total distance in meters.
	FullText    string    // Full-text search on name, club and description.
	Limit       int       // Max results (default 100).
	Offset      int       // Pagination offset.
	OrderBy     string    // Sort field (start_time, distance_meters, duration_seconds, name, imported_at).
	OrderDesc   bool      // Sort descending.
}

// Stats contains aggregate statistics about the archive.
type Stats struct {
	TotalTracks    int            `json:"total_tracks"`
	TotalDistance  float64        `json:"total_distance_meters"`
	TotalDuration  float64        `json:"total_duration_seconds"`
	TotalWaypoints int            `json:"total_waypoints"`
	ByClub         map[string]int `json:"by_club"`
	ByMonth        map[string]int `json:"by_month"`
}

// Store is the track archive interface shared by the SQLite and
// PostgreSQL backends. GetByID and Payload return nil without error
// when no such track exists.
type Store interface {
	Insert(ctx context.Context, p InsertParams) (int64, error)
	Query(ctx context.Context, p QueryParams) ([]Track, error)
	GetByID(ctx context.Context, id int64) (*Track, error)
	Payload(ctx context.Context, id int64) ([]byte, error)
	Stats(ctx context.Context) (*Stats, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

// OpenStore opens the archive backend named in cfg.Backend.
func OpenStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// contentHash identifies a track by its raw payload so re-imports of
// the same image can be recognized. Falls back to the document JSON
// when no payload was kept.
func contentHash(payload []byte, documentJSON string) string {
	var sum [sha256.Size]byte
	if len(payload) > 0 {
		sum = sha256.Sum256(payload)
	} else {
		sum = sha256.Sum256([]byte(documentJSON))
	}
	return hex.EncodeToString(sum[:])
}

// orderField validates a requested sort column, falling back to id.
func orderField(requested string) string {
	switch requested {
	case "start_time", "distance_meters", "duration_seconds", "name", "imported_at":
		return requested
	}
	return "id"
}
