package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"quickroute/internal/api"
	"quickroute/internal/config"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the archive over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&config.APIPort, "port", "p", 8080, "listen port")
	cmd.Flags().BoolVar(&config.APIAuth, "auth", false, "require an API key")
	cmd.Flags().StringSliceVar(&config.APIKeys, "api-keys", nil, "accepted API keys (comma separated)")
	return cmd
}

func runServe(ctx context.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	server := api.NewServer(store, api.Config{
		Port:        config.APIPort,
		AuthEnabled: config.APIAuth,
		APIKeys:     config.APIKeys,
	})
	return server.Run()
}
