// Package cmd wires the quickroute subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"quickroute/internal/config"
	"quickroute/internal/log"
	"quickroute/internal/storage"
	"quickroute/internal/version"
)

const envPrefix = "QR"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "quickroute",
	Short:   "Decode and archive QuickRoute GPS tracks embedded in JPEG files",
	Long:    ``,
	Version: version.FullVersion(),
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.quickroute.yml)")

	rootCmd.PersistentFlags().StringVar(&config.LogLevel, "log-level",
		"info",
		"controls the log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat, "log-format",
		"text",
		"controls the log output format (text, json)")

	rootCmd.PersistentFlags().StringVar(&config.StorageBackend, "storage",
		"sqlite",
		"archive backend (sqlite, postgres)")
	rootCmd.PersistentFlags().StringVar(&config.SQLitePath, "sqlite-path",
		"quickroute.db",
		"path of the sqlite archive file")
	rootCmd.PersistentFlags().StringVar(&config.PostgresHost, "postgres-host",
		"localhost", "PostgreSQL host")
	rootCmd.PersistentFlags().IntVar(&config.PostgresPort, "postgres-port",
		5432, "PostgreSQL port")
	rootCmd.PersistentFlags().StringVar(&config.PostgresDB, "postgres-db",
		"quickroute", "PostgreSQL database name")
	rootCmd.PersistentFlags().StringVar(&config.PostgresUser, "postgres-user",
		"quickroute", "PostgreSQL user")
	rootCmd.PersistentFlags().StringVar(&config.PostgresPassword, "postgres-password",
		"", "PostgreSQL password")

	rootCmd.PersistentFlags().BoolVar(&config.ClickHouseEnabled, "clickhouse",
		false, "mirror waypoints into ClickHouse")
	rootCmd.PersistentFlags().StringVar(&config.ClickHouseHost, "clickhouse-host",
		"localhost", "ClickHouse host")
	rootCmd.PersistentFlags().IntVar(&config.ClickHousePort, "clickhouse-port",
		9000, "ClickHouse native port")
	rootCmd.PersistentFlags().StringVar(&config.ClickHouseDB, "clickhouse-db",
		"quickroute", "ClickHouse database name")
	rootCmd.PersistentFlags().StringVar(&config.ClickHouseUser, "clickhouse-user",
		"default", "ClickHouse user")
	rootCmd.PersistentFlags().StringVar(&config.ClickHousePassword, "clickhouse-password",
		"", "ClickHouse password")

	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newArchiveCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".quickroute")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}

	initLogger()
}

// bindFlags binds each cobra flag to its associated viper
// configuration (config file and environment variable).
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them; bind
		// --clickhouse-host to QR_CLICKHOUSE_HOST.
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper value when the flag was not set on the
		// command line.
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}

func initLogger() {
	if config.LogFormat == "json" {
		log.InitProductionLogger()
	} else if config.LogLevel == "debug" {
		log.InitDevelopmentLogger()
	}
}

// storageConfig assembles the archive settings from the resolved
// configuration.
func storageConfig() storage.Config {
	return storage.Config{
		Backend:    config.StorageBackend,
		SQLitePath: config.SQLitePath,
		Postgres: storage.PostgresConfig{
			Host:     config.PostgresHost,
			Port:     config.PostgresPort,
			Database: config.PostgresDB,
			User:     config.PostgresUser,
			Password: config.PostgresPassword,
		},
		ClickHouse: storage.ClickHouseConfig{
			Host:     config.ClickHouseHost,
			Port:     config.ClickHousePort,
			Database: config.ClickHouseDB,
			User:     config.ClickHouseUser,
			Password: config.ClickHousePassword,
		},
	}
}

// openStore opens the configured archive backend.
func openStore(ctx context.Context) (storage.Store, error) {
	return storage.OpenStore(ctx, storageConfig())
}

// openClickHouse opens the waypoint mirror when enabled, creating its
// schema on first use. Returns nil when disabled.
func openClickHouse(ctx context.Context) (*storage.ClickHouseDB, error) {
	if !config.ClickHouseEnabled {
		return nil, nil
	}
	ch, err := storage.OpenClickHouse(ctx, storageConfig().ClickHouse)
	if err != nil {
		return nil, err
	}
	if err := ch.CreateSchema(ctx); err != nil {
		ch.Close()
		return nil, err
	}
	return ch, nil
}
