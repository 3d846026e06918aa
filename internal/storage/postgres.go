package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quickroute/internal/extractor"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB wraps a PostgreSQL connection pool for the shared track
// archive.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL and ensures the
// schema exists.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	d := &PostgresDB{pool: pool}
	if err := d.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return d, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

// Pool returns the underlying connection pool for advanced operations.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}

func (d *PostgresDB) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracks (
		id              BIGSERIAL PRIMARY KEY,
		source          TEXT NOT NULL,
		imported_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		content_hash    TEXT NOT NULL UNIQUE,
		version         TEXT,
		name            TEXT,
		club            TEXT,
		description     TEXT,
		start_time      TIMESTAMPTZ,
		end_time        TIMESTAMPTZ,
		duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		distance_meters  DOUBLE PRECISION NOT NULL DEFAULT 0,
		session_count   INTEGER NOT NULL DEFAULT 0,
		segment_count   INTEGER NOT NULL DEFAULT 0,
		waypoint_count  INTEGER NOT NULL DEFAULT 0,
		lap_count       INTEGER NOT NULL DEFAULT 0,
		max_heart_rate  INTEGER NOT NULL DEFAULT 0,
		avg_heart_rate  INTEGER NOT NULL DEFAULT 0,
		min_lat         DOUBLE PRECISION,
		max_lat         DOUBLE PRECISION,
		min_lon         DOUBLE PRECISION,
		max_lon         DOUBLE PRECISION,
		document        JSONB NOT NULL,
		payload         BYTEA
	);

	CREATE INDEX IF NOT EXISTS idx_tracks_start_time ON tracks(start_time);
	CREATE INDEX IF NOT EXISTS idx_tracks_club ON tracks(club);
	CREATE INDEX IF NOT EXISTS idx_tracks_name ON tracks(name);
	`

	_, err := d.pool.Exec(ctx, schema)
	return err
}

// Insert archives a decoded track. Re-importing identical content
// updates the existing row and returns its ID.
func (d *PostgresDB) Insert(ctx context.Context, p InsertParams) (int64, error) {
	s := p.Summary
	var minLat, maxLat, minLon, maxLon *float64
	if s.Bounds != nil {
		minLat, maxLat = &s.Bounds.MinLat, &s.Bounds.MaxLat
		minLon, maxLon = &s.Bounds.MinLon, &s.Bounds.MaxLon
	}

	var id int64
	err := d.pool.QueryRow(ctx, `
		INSERT INTO tracks (source, content_hash, version, name, club, description,
			start_time, end_time, duration_seconds, distance_meters,
			session_count, segment_count, waypoint_count, lap_count,
			max_heart_rate, avg_heart_rate, min_lat, max_lat, min_lon, max_lon,
			document, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (content_hash) DO UPDATE SET
			source = EXCLUDED.source,
			imported_at = NOW(),
			document = EXCLUDED.document
		RETURNING id
	`, p.Source, contentHash(p.Payload, p.DocumentJSON), s.Version, s.Name, s.Club, s.Description,
		s.StartTime, s.EndTime, s.DurationSecs, s.DistanceMeters,
		s.SessionCount, s.SegmentCount, s.WaypointCount, s.LapCount,
		s.MaxHeartRate, s.AvgHeartRate, minLat, maxLat, minLon, maxLon,
		[]byte(p.DocumentJSON), p.Payload).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert track: %w", err)
	}
	return id, nil
}

const pgTrackColumns = `id, source, imported_at, content_hash, version, name, club, description,
	start_time, end_time, duration_seconds, distance_meters,
	session_count, segment_count, waypoint_count, lap_count,
	max_heart_rate, avg_heart_rate, min_lat, max_lat, min_lon, max_lon, document`

func scanPGTrack(row pgx.Row) (Track, error) {
	var t Track
	var version, name, club, description *string
	var minLat, maxLat, minLon, maxLon *float64
	var document []byte

	err := row.Scan(&t.ID, &t.Source, &t.ImportedAt, &t.ContentHash, &version, &name, &club, &description,
		&t.StartTime, &t.EndTime, &t.DurationSecs, &t.DistanceMeters,
		&t.SessionCount, &t.SegmentCount, &t.WaypointCount, &t.LapCount,
		&t.MaxHeartRate, &t.AvgHeartRate, &minLat, &maxLat, &minLon, &maxLon, &document)
	if err != nil {
		return Track{}, err
	}

	if version != nil {
		t.Version = *version
	}
	if name != nil {
		t.Name = *name
	}
	if club != nil {
		t.Club = *club
	}
	if description != nil {
		t.Description = *description
	}
	if minLat != nil && maxLat != nil && minLon != nil && maxLon != nil {
		t.Bounds = &extractor.Bounds{
			MinLat: *minLat, MaxLat: *maxLat,
			MinLon: *minLon, MaxLon: *maxLon,
		}
	}
	t.DocumentJSON = string(document)
	return t, nil
}

// Query retrieves tracks matching the given parameters.
func (d *PostgresDB) Query(ctx context.Context, p QueryParams) ([]Track, error) {
	var conditions []string
	var args []interface{}

	if p.ID != 0 {
		args = append(args, p.ID)
		conditions = append(conditions, fmt.Sprintf("id = $%d", len(args)))
	}
	if p.Name != "" {
		args = append(args, "%"+p.Name+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if p.Club != "" {
		args = append(args, p.Club)
		conditions = append(conditions, fmt.Sprintf("club = $%d", len(args)))
	}
	if !p.Since.IsZero() {
		args = append(args, p.Since)
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if !p.Until.IsZero() {
		args = append(args, p.Until)
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", len(args)))
	}
	if p.MinDistance > 0 {
		args = append(args, p.MinDistance)
		conditions = append(conditions, fmt.Sprintf("distance_meters >= $%d", len(args)))
	}
	if p.FullText != "" {
		args = append(args, "%"+p.FullText+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR club ILIKE $%d OR description ILIKE $%d)", n, n, n))
	}

	query := `SELECT ` + pgTrackColumns + ` FROM tracks`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderField(p.OrderBy), direction)

	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		t, err := scanPGTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// GetByID retrieves a single track by ID.
func (d *PostgresDB) GetByID(ctx context.Context, id int64) (*Track, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+pgTrackColumns+` FROM tracks WHERE id = $1`, id)
	t, err := scanPGTrack(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Payload returns the raw extracted bytes stored for a track.
func (d *PostgresDB) Payload(ctx context.Context, id int64) ([]byte, error) {
	var payload []byte
	err := d.pool.QueryRow(ctx, `SELECT payload FROM tracks WHERE id = $1`, id).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Delete removes a track from the archive.
func (d *PostgresDB) Delete(ctx context.Context, id int64) error {
	_, err := d.pool.Exec(ctx, `DELETE FROM tracks WHERE id = $1`, id)
	return err
}

// Stats returns aggregate statistics about the archive.
func (d *PostgresDB) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByClub:  make(map[string]int),
		ByMonth: make(map[string]int),
	}

	err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(distance_meters), 0), COALESCE(SUM(duration_seconds), 0), COALESCE(SUM(waypoint_count), 0)
		FROM tracks`).Scan(&stats.TotalTracks, &stats.TotalDistance, &stats.TotalDuration, &stats.TotalWaypoints)
	if err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx, `
		SELECT club, COUNT(*) FROM tracks
		WHERE club IS NOT NULL AND club != ''
		GROUP BY club ORDER BY COUNT(*) DESC LIMIT 20`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var club string
		var count int
		if err := rows.Scan(&club, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByClub[club] = count
	}
	rows.Close()

	rows, err = d.pool.Query(ctx, `
		SELECT to_char(start_time, 'YYYY-MM'), COUNT(*) FROM tracks
		WHERE start_time IS NOT NULL
		GROUP BY 1 ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var month string
		var count int
		if err := rows.Scan(&month, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByMonth[month] = count
	}
	rows.Close()

	return stats, nil
}
