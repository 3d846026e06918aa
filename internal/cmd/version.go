package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quickroute/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("quickroute", version.FullVersion())
		},
	}
}
