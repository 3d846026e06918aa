package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"quickroute/internal/storage"
)

func newListCmd() *cobra.Command {
	var (
		params storage.QueryParams
		since  string
		until  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if params.Since, err = parseTimeFlag(since); err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			if params.Until, err = parseTimeFlag(until); err != nil {
				return fmt.Errorf("invalid --until: %w", err)
			}
			return runList(cmd.Context(), params, asJSON)
		},
	}
	cmd.Flags().StringVar(&params.Name, "name", "", "filter by name substring")
	cmd.Flags().StringVar(&params.Club, "club", "", "filter by exact club")
	cmd.Flags().StringVarP(&params.FullText, "search", "q", "", "full-text search over name, club and description")
	cmd.Flags().StringVar(&since, "since", "", "only tracks starting at or after this time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "only tracks starting before this time")
	cmd.Flags().Float64Var(&params.MinDistance, "min-distance", 0, "minimum distance in meters")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "maximum number of rows (default 100)")
	cmd.Flags().IntVar(&params.Offset, "offset", 0, "rows to skip")
	cmd.Flags().StringVar(&params.OrderBy, "order", "", "sort field (start_time, distance_meters, duration_seconds, name, imported_at)")
	cmd.Flags().BoolVar(&params.OrderDesc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func parseTimeFlag(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func runList(ctx context.Context, params storage.QueryParams, asJSON bool) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	tracks, err := store.Query(ctx, params)
	if err != nil {
		return err
	}

	if asJSON {
		enc, err := marshalJSON(tracks, true)
		if err != nil {
			return err
		}
		fmt.Println(string(enc))
		return nil
	}

	if len(tracks) == 0 {
		fmt.Println("no tracks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTART\tNAME\tCLUB\tDISTANCE\tDURATION\tWAYPOINTS")
	for _, t := range tracks {
		start := ""
		if t.StartTime != nil {
			start = t.StartTime.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.1f km\t%s\t%d\n",
			t.ID, start, t.Name, t.Club,
			t.DistanceMeters/1000,
			formatDuration(t.DurationSecs),
			t.WaypointCount)
	}
	return w.Flush()
}

func formatDuration(secs float64) string {
	d := time.Duration(secs * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
