package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"quickroute/internal/extractor"

	_ "modernc.org/sqlite"
)

// SQLiteDB is the local single-file track archive.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite archive at the given path.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// createSQLiteSchema creates the tables, indices and the full-text
// index over track metadata.
func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		imported_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		content_hash TEXT NOT NULL,
		version TEXT,
		name TEXT,
		club TEXT,
		description TEXT,
		start_time TEXT,
		end_time TEXT,
		duration_seconds REAL NOT NULL DEFAULT 0,
		distance_meters REAL NOT NULL DEFAULT 0,
		session_count INTEGER NOT NULL DEFAULT 0,
		segment_count INTEGER NOT NULL DEFAULT 0,
		waypoint_count INTEGER NOT NULL DEFAULT 0,
		lap_count INTEGER NOT NULL DEFAULT 0,
		max_heart_rate INTEGER NOT NULL DEFAULT 0,
		avg_heart_rate INTEGER NOT NULL DEFAULT 0,
		min_lat REAL, max_lat REAL, min_lon REAL, max_lon REAL,
		document_json TEXT NOT NULL,
		payload BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_tracks_start_time ON tracks(start_time);
	CREATE INDEX IF NOT EXISTS idx_tracks_club ON tracks(club);
	CREATE INDEX IF NOT EXISTS idx_tracks_name ON tracks(name);
	CREATE INDEX IF NOT EXISTS idx_tracks_hash ON tracks(content_hash);

	-- FTS5 virtual table for full-text search on track metadata.
	CREATE VIRTUAL TABLE IF NOT EXISTS tracks_fts USING fts5(
		name, club, description,
		content='tracks',
		content_rowid='id'
	);

	-- Triggers to keep the FTS index in sync.
	CREATE TRIGGER IF NOT EXISTS tracks_ai AFTER INSERT ON tracks BEGIN
		INSERT INTO tracks_fts(rowid, name, club, description) VALUES (new.id, new.name, new.club, new.description);
	END;

	CREATE TRIGGER IF NOT EXISTS tracks_ad AFTER DELETE ON tracks BEGIN
		INSERT INTO tracks_fts(tracks_fts, rowid, name, club, description) VALUES('delete', old.id, old.name, old.club, old.description);
	END;

	CREATE TRIGGER IF NOT EXISTS tracks_au AFTER UPDATE ON tracks BEGIN
		INSERT INTO tracks_fts(tracks_fts, rowid, name, club, description) VALUES('delete', old.id, old.name, old.club, old.description);
		INSERT INTO tracks_fts(rowid, name, club, description) VALUES (new.id, new.name, new.club, new.description);
	END;
	`

	_, err := db.Exec(schema)
	return err
}

// Insert archives a decoded track.
func (d *SQLiteDB) Insert(ctx context.Context, p InsertParams) (int64, error) {
	s := p.Summary
	var startTime, endTime interface{}
	if s.StartTime != nil {
		startTime = s.StartTime.UTC().Format(time.RFC3339)
	}
	if s.EndTime != nil {
		endTime = s.EndTime.UTC().Format(time.RFC3339)
	}
	var minLat, maxLat, minLon, maxLon interface{}
	if s.Bounds != nil {
		minLat, maxLat = s.Bounds.MinLat, s.Bounds.MaxLat
		minLon, maxLon = s.Bounds.MinLon, s.Bounds.MaxLon
	}

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO tracks (source, content_hash, version, name, club, description,
			start_time, end_time, duration_seconds, distance_meters,
			session_count, segment_count, waypoint_count, lap_count,
			max_heart_rate, avg_heart_rate, min_lat, max_lat, min_lon, max_lon,
			document_json, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Source, contentHash(p.Payload, p.DocumentJSON), s.Version, s.Name, s.Club, s.Description,
		startTime, endTime, s.DurationSecs, s.DistanceMeters,
		s.SessionCount, s.SegmentCount, s.WaypointCount, s.LapCount,
		s.MaxHeartRate, s.AvgHeartRate, minLat, maxLat, minLon, maxLon,
		p.DocumentJSON, p.Payload)
	if err != nil {
		return 0, fmt.Errorf("insert track: %w", err)
	}

	return result.LastInsertId()
}

const sqliteTrackColumns = `id, source, imported_at, content_hash, version, name, club, description,
	start_time, end_time, duration_seconds, distance_meters,
	session_count, segment_count, waypoint_count, lap_count,
	max_heart_rate, avg_heart_rate, min_lat, max_lat, min_lon, max_lon, document_json`

// scanSQLiteTrack reads one track row; the column order matches
// sqliteTrackColumns.
func scanSQLiteTrack(scan func(...interface{}) error) (Track, error) {
	var t Track
	var importedAt string
	var version, name, club, description, startTime, endTime sql.NullString
	var minLat, maxLat, minLon, maxLon sql.NullFloat64

	err := scan(&t.ID, &t.Source, &importedAt, &t.ContentHash, &version, &name, &club, &description,
		&startTime, &endTime, &t.DurationSecs, &t.DistanceMeters,
		&t.SessionCount, &t.SegmentCount, &t.WaypointCount, &t.LapCount,
		&t.MaxHeartRate, &t.AvgHeartRate, &minLat, &maxLat, &minLon, &maxLon, &t.DocumentJSON)
	if err != nil {
		return Track{}, err
	}

	t.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)
	t.Version = version.String
	t.Name = name.String
	t.Club = club.String
	t.Description = description.String
	if startTime.Valid {
		if ts, err := time.Parse(time.RFC3339, startTime.String); err == nil {
			t.StartTime = &ts
		}
	}
	if endTime.Valid {
		if ts, err := time.Parse(time.RFC3339, endTime.String); err == nil {
			t.EndTime = &ts
		}
	}
	if minLat.Valid && maxLat.Valid && minLon.Valid && maxLon.Valid {
		t.Bounds = &extractor.Bounds{
			MinLat: minLat.Float64, MaxLat: maxLat.Float64,
			MinLon: minLon.Float64, MaxLon: maxLon.Float64,
		}
	}
	return t, nil
}

// Query retrieves tracks matching the given parameters.
func (d *SQLiteDB) Query(ctx context.Context, p QueryParams) ([]Track, error) {
	var conditions []string
	var args []interface{}

	if p.ID != 0 {
		conditions = append(conditions, "id = ?")
		args = append(args, p.ID)
	}
	if p.Name != "" {
		conditions = append(conditions, "name LIKE ?")
		args = append(args, "%"+p.Name+"%")
	}
	if p.Club != "" {
		conditions = append(conditions, "club = ?")
		args = append(args, p.Club)
	}
	if !p.Since.IsZero() {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, p.Since.UTC().Format(time.RFC3339))
	}
	if !p.Until.IsZero() {
		conditions = append(conditions, "start_time < ?")
		args = append(args, p.Until.UTC().Format(time.RFC3339))
	}
	if p.MinDistance > 0 {
		conditions = append(conditions, "distance_meters >= ?")
		args = append(args, p.MinDistance)
	}
	if p.FullText != "" {
		conditions = append(conditions, "id IN (SELECT rowid FROM tracks_fts WHERE tracks_fts MATCH ?)")
		args = append(args, p.FullText)
	}

	query := `SELECT ` + sqliteTrackColumns + ` FROM tracks`
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

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tracks []Track
	for rows.Next() {
		t, err := scanSQLiteTrack(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// GetByID retrieves a single track by ID.
func (d *SQLiteDB) GetByID(ctx context.Context, id int64) (*Track, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+sqliteTrackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanSQLiteTrack(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Payload returns the raw extracted bytes stored for a track.
func (d *SQLiteDB) Payload(ctx context.Context, id int64) ([]byte, error) {
	var payload []byte
	err := d.db.QueryRowContext(ctx, `SELECT payload FROM tracks WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return payload, nil
}

// Delete removes a track from the archive.
func (d *SQLiteDB) Delete(ctx context.Context, id int64) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
	return err
}

// Stats returns aggregate statistics about the archive.
func (d *SQLiteDB) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByClub:  make(map[string]int),
		ByMonth: make(map[string]int),
	}

	row := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(distance_meters), 0), COALESCE(SUM(duration_seconds), 0), COALESCE(SUM(waypoint_count), 0)
		FROM tracks`)
	if err := row.Scan(&stats.TotalTracks, &stats.TotalDistance, &stats.TotalDuration, &stats.TotalWaypoints); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
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
			_ = rows.Close()
			return nil, err
		}
		stats.ByClub[club] = count
	}
	_ = rows.Close()

	rows, err = d.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', start_time), COUNT(*) FROM tracks
		WHERE start_time IS NOT NULL
		GROUP BY 1 ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var month sql.NullString
		var count int
		if err := rows.Scan(&month, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if month.Valid {
			stats.ByMonth[month.String] = count
		}
	}
	_ = rows.Close()

	return stats, nil
}
