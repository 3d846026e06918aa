package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"quickroute/internal/jpeg"
	"quickroute/internal/qrt"
)

func newDecodeCmd() *cobra.Command {
	var (
		output    string
		pretty    bool
		lenient   bool
		showStats bool
	)
	cmd := &cobra.Command{
		Use:   "decode <image.jpg>",
		Short: "Decode the embedded track of a JPEG and print it as JSON",
		Long: `Decode reads a QuickRoute JPEG, extracts the embedded track data
and prints the decoded document as JSON. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(args[0], output, pretty, lenient, showStats)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "tolerate session count mismatches")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print basic counters to stderr")
	return cmd
}

// readInput returns the contents of path, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func decodeFile(path string, lenient bool) (*qrt.Document, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	payload, err := jpeg.ExtractPayload(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc, err := qrt.DecodeWithOptions(payload, qrt.Options{LenientSessionCount: lenient})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func runDecode(path, output string, pretty, lenient, showStats bool) error {
	doc, err := decodeFile(path, lenient)
	if err != nil {
		return err
	}

	enc, err := marshalJSON(doc, pretty)
	if err != nil {
		return err
	}
	if err := writeOutput(output, enc); err != nil {
		return err
	}
	if output == "" {
		fmt.Println()
	}

	if showStats {
		var segments, waypoints, laps int
		for _, s := range doc.Sessions {
			laps += len(s.Laps)
			if s.Route == nil {
				continue
			}
			segments += len(s.Route.Segments)
			for _, seg := range s.Route.Segments {
				waypoints += len(seg.Waypoints)
			}
		}
		fmt.Fprintf(os.Stderr,
			"stats: sessions=%d segments=%d waypoints=%d laps=%d diagnostics=%d\n",
			len(doc.Sessions), segments, waypoints, laps, len(doc.Diagnostics),
		)
	}
	return nil
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
