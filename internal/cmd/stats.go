package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate archive statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func runStats(ctx context.Context, asJSON bool) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc, err := marshalJSON(stats, true)
		if err != nil {
			return err
		}
		fmt.Println(string(enc))
		return nil
	}

	fmt.Printf("tracks:    %d\n", stats.TotalTracks)
	fmt.Printf("distance:  %.1f km\n", stats.TotalDistance/1000)
	fmt.Printf("duration:  %s\n", time.Duration(stats.TotalDuration*float64(time.Second)).Round(time.Second))
	fmt.Printf("waypoints: %d\n", stats.TotalWaypoints)

	if len(stats.ByClub) > 0 {
		fmt.Println("\nby club:")
		for _, club := range sortedKeys(stats.ByClub) {
			fmt.Printf("  %-24s %d\n", club, stats.ByClub[club])
		}
	}
	if len(stats.ByMonth) > 0 {
		fmt.Println("\nby month:")
		for _, month := range sortedKeys(stats.ByMonth) {
			fmt.Printf("  %s  %d\n", month, stats.ByMonth[month])
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
