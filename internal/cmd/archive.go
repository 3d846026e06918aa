package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"quickroute/internal/extractor"
	"quickroute/internal/jpeg"
	"quickroute/internal/qrt"
	"quickroute/internal/storage"
)

func newArchiveCmd() *cobra.Command {
	var (
		lenient   bool
		showStats bool
	)
	cmd := &cobra.Command{
		Use:   "archive <image.jpg> [more.jpg ...]",
		Short: "Decode JPEG files and store the tracks in the archive",
		Long: `Archive decodes each file and inserts the track into the configured
backend. With --clickhouse the waypoints are also mirrored into the
columnar store. Files that fail to decode are reported and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(cmd.Context(), args, lenient, showStats)
		},
	}
	cmd.Flags().BoolVar(&lenient, "lenient", false, "tolerate session count mismatches")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print basic counters to stderr")
	return cmd
}

func runArchive(ctx context.Context, paths []string, lenient, showStats bool) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	ch, err := openClickHouse(ctx)
	if err != nil {
		return err
	}
	if ch != nil {
		defer ch.Close()
	}

	var archived, failed int
	for _, path := range paths {
		id, err := archiveFile(ctx, store, ch, path, lenient)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("archived %s as track %d\n", filepath.Base(path), id)
		archived++
	}

	if showStats {
		fmt.Fprintf(os.Stderr, "stats: files=%d archived=%d failed=%d\n",
			len(paths), archived, failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func archiveFile(ctx context.Context, store storage.Store, ch *storage.ClickHouseDB, path string, lenient bool) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	payload, err := jpeg.ExtractPayload(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	doc, err := qrt.DecodeWithOptions(payload, qrt.Options{LenientSessionCount: lenient})
	if err != nil {
		return 0, err
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}

	id, err := store.Insert(ctx, storage.InsertParams{
		Source:       filepath.Base(path),
		Summary:      extractor.Summarize(doc),
		DocumentJSON: string(docJSON),
		Payload:      payload,
	})
	if err != nil {
		return 0, err
	}

	if ch != nil {
		if err := ch.InsertWaypoints(ctx, id, extractor.Rows(doc)); err != nil {
			// The archive row exists; report the mirror failure only.
			fmt.Fprintf(os.Stderr, "%s: waypoint mirror failed: %v\n", path, err)
		}
	}
	return id, nil
}
