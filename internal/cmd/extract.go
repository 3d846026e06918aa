package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quickroute/internal/jpeg"
)

func newExtractCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "extract <image.jpg>",
		Short: "Extract the raw embedded track bytes without decoding",
		Long: `Extract pulls the raw track payload out of the JPEG metadata and
writes it unchanged. Useful for archiving originals or feeding the
tagdump tool.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func runExtract(path, output string) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}
	payload, err := jpeg.ExtractPayload(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := writeOutput(output, payload); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "extracted %d bytes\n", len(payload))
	return nil
}
