// Package main provides a tool to export archived tracks to CSV for
// spreadsheet analysis. The default mode emits one summary row per
// track; -track exports the waypoint samples of a single track.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"quickroute/internal/extractor"
	"quickroute/internal/qrt"
	"quickroute/internal/storage"
)

func main() {
	backend := flag.String("storage", "sqlite", "Archive backend: sqlite, postgres")
	sqlitePath := flag.String("sqlite-path", "quickroute.db", "Path of the sqlite archive file")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "quickroute", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDB := flag.String("pg-db", "quickroute", "PostgreSQL database")

	output := flag.String("output", "", "Output CSV file (default: stdout)")
	trackID := flag.Int64("track", 0, "Export the waypoints of this track instead of summaries")
	club := flag.String("club", "", "Only tracks of this club")
	minDistance := flag.Float64("min-distance", 0, "Minimum distance in meters to include a track")
	limit := flag.Int("limit", 0, "Maximum number of tracks (default 100)")

	flag.Parse()

	ctx := context.Background()

	store, err := storage.OpenStore(ctx, storage.Config{
		Backend:    *backend,
		SQLitePath: *sqlitePath,
		Postgres: storage.PostgresConfig{
			Host:     *pgHost,
			Port:     *pgPort,
			Database: *pgDB,
			User:     *pgUser,
			Password: *pgPassword,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	writer := csv.NewWriter(os.Stdout)
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = file.Close() }()
		writer = csv.NewWriter(file)
	}

	if *trackID != 0 {
		err = exportWaypoints(ctx, store, writer, *trackID)
	} else {
		err = exportSummaries(ctx, store, writer, storage.QueryParams{
			Club:        *club,
			MinDistance: *minDistance,
			Limit:       *limit,
			OrderBy:     "start_time",
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "Error flushing CSV: %v\n", err)
		os.Exit(1)
	}
}

func exportSummaries(ctx context.Context, store storage.Store, w *csv.Writer, params storage.QueryParams) error {
	tracks, err := store.Query(ctx, params)
	if err != nil {
		return fmt.Errorf("querying tracks: %w", err)
	}
	if len(tracks) == 0 {
		fmt.Fprintln(os.Stderr, "No tracks found matching criteria")
		return nil
	}

	header := []string{"id", "source", "start_time", "name", "club",
		"distance_m", "duration_s", "waypoints", "laps", "max_hr", "avg_hr"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, t := range tracks {
		start := ""
		if t.StartTime != nil {
			start = t.StartTime.UTC().Format(time.RFC3339)
		}
		row := []string{
			strconv.FormatInt(t.ID, 10),
			t.Source,
			start,
			t.Name,
			t.Club,
			strconv.FormatFloat(t.DistanceMeters, 'f', 1, 64),
			strconv.FormatFloat(t.DurationSecs, 'f', 1, 64),
			strconv.Itoa(t.WaypointCount),
			strconv.Itoa(t.LapCount),
			strconv.Itoa(t.MaxHeartRate),
			strconv.Itoa(t.AvgHeartRate),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// exportWaypoints re-decodes the stored payload so the samples carry
// the derived elapsed and distance values.
func exportWaypoints(ctx context.Context, store storage.Store, w *csv.Writer, id int64) error {
	payload, err := store.Payload(ctx, id)
	if err != nil {
		return fmt.Errorf("loading payload: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("track %d not found or has no stored payload", id)
	}

	doc, err := qrt.Decode(payload)
	if err != nil {
		return fmt.Errorf("decoding track %d: %w", id, err)
	}

	header := []string{"session", "segment", "index", "time",
		"lat", "lon", "elapsed_s", "distance_m", "heart_rate", "altitude"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range extractor.Rows(doc) {
		row := []string{
			strconv.Itoa(r.Session),
			strconv.Itoa(r.Segment),
			strconv.Itoa(r.Index),
			formatTime(r.Time),
			formatFloat(r.Lat, 6),
			formatFloat(r.Lon, 6),
			formatFloat(r.Elapsed, 1),
			formatFloat(r.Distance, 1),
			formatInt(r.HeartRate),
			formatInt(r.Altitude),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f *float64, prec int) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', prec, 64)
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
