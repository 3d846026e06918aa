package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a track from the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid track ID %q", args[0])
			}
			return runDelete(cmd.Context(), id)
		},
	}
	return cmd
}

func runDelete(ctx context.Context, id int64) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	track, err := store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if track == nil {
		return fmt.Errorf("track %d not found", id)
	}

	if err := store.Delete(ctx, id); err != nil {
		return err
	}

	ch, err := openClickHouse(ctx)
	if err != nil {
		return err
	}
	if ch != nil {
		defer ch.Close()
		if err := ch.DeleteTrack(ctx, id); err != nil {
			fmt.Printf("track %d deleted; waypoint mirror cleanup failed: %v\n", id, err)
			return nil
		}
	}

	fmt.Printf("deleted track %d (%s)\n", id, track.Source)
	return nil
}
