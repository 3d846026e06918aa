package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var (
		document bool
		pretty   bool
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one archived track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid track ID %q", args[0])
			}
			return runShow(cmd.Context(), id, document, pretty)
		},
	}
	cmd.Flags().BoolVar(&document, "document", false, "print the full decoded document instead of the summary")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "pretty-print JSON output")
	return cmd
}

func runShow(ctx context.Context, id int64, document, pretty bool) error {
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

	if document {
		// Stored verbatim at archive time; print it as-is.
		fmt.Println(track.DocumentJSON)
		return nil
	}

	enc, err := marshalJSON(track, pretty)
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}
