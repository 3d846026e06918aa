package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"quickroute/internal/extractor"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB wraps a ClickHouse connection holding flattened
// waypoint samples for analytics.
type ClickHouseDB struct {
	conn driver.Conn
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS waypoints (
		track_id        UInt64,
		session         UInt16,
		segment         UInt16,
		idx             UInt32,
		time            Nullable(DateTime64(3)),
		elapsed_seconds Nullable(Float64),
		latitude        Nullable(Float64),
		longitude       Nullable(Float64),
		distance_meters Nullable(Float64),
		heart_rate      Nullable(Int32),
		altitude        Nullable(Int32),
		recorded_at     DateTime64(3) DEFAULT now64(3)
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(recorded_at)
	ORDER BY (track_id, session, segment, idx)
	SETTINGS index_granularity = 8192`

	if err := d.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func int32ptr(p *int) *int32 {
	if p == nil {
		return nil
	}
	v := int32(*p)
	return &v
}

// InsertWaypoints stores the flattened waypoint rows of a track.
func (d *ClickHouseDB) InsertWaypoints(ctx context.Context, trackID int64, rows []extractor.WaypointRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO waypoints (track_id, session, segment, idx, time, elapsed_seconds, latitude, longitude, distance_meters, heart_rate, altitude)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err := batch.Append(uint64(trackID), uint16(r.Session), uint16(r.Segment), uint32(r.Index),
			r.Time, r.Elapsed, r.Lat, r.Lon, r.Distance,
			int32ptr(r.HeartRate), int32ptr(r.Altitude))
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// DeleteTrack removes all waypoint rows for a track. ClickHouse
// deletes are asynchronous mutations.
func (d *ClickHouseDB) DeleteTrack(ctx context.Context, trackID int64) error {
	return d.conn.Exec(ctx, `ALTER TABLE waypoints DELETE WHERE track_id = ?`, uint64(trackID))
}

// Count returns the total number of stored waypoint rows.
func (d *ClickHouseDB) Count(ctx context.Context) (uint64, error) {
	var count uint64
	row := d.conn.QueryRow(ctx, "SELECT count() FROM waypoints")
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountByTrack returns waypoint counts grouped by track.
func (d *ClickHouseDB) CountByTrack(ctx context.Context) (map[uint64]uint64, error) {
	counts := make(map[uint64]uint64)
	rows, err := d.conn.Query(ctx, "SELECT track_id, count() FROM waypoints GROUP BY track_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var trackID, count uint64
		if err := rows.Scan(&trackID, &count); err != nil {
			return nil, fmt.Errorf("scan count by track: %w", err)
		}
		counts[trackID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count by track: %w", err)
	}
	return counts, nil
}
