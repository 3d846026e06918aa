package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"quickroute/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		format  string
		output  string
		name    string
		lenient bool
	)
	cmd := &cobra.Command{
		Use:   "export <image.jpg>",
		Short: "Convert the embedded track to GPX or KML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(args[0], format, output, name, lenient)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "gpx", "output format (gpx, kml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&name, "name", "", "track name (default: derived from session metadata)")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "tolerate session count mismatches")
	return cmd
}

func runExport(path, format, output, name string, lenient bool) error {
	doc, err := decodeFile(path, lenient)
	if err != nil {
		return err
	}

	if name == "" && path != "-" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var data []byte
	switch strings.ToLower(format) {
	case "gpx":
		data, err = export.ToGPX(doc, name)
	case "kml":
		data, err = export.ToKML(doc, name)
	default:
		return fmt.Errorf("unknown format %q (use gpx or kml)", format)
	}
	if err != nil {
		return err
	}

	return writeOutput(output, data)
}
