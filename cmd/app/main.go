// entry point to the catering finance service
package main

import (
	"context"
	"fmt"

	"github.com/ds124wfegd/WB_L3/catering/config"
	"github.com/ds124wfegd/WB_L3/catering/internal/appServer"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	if err := rootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	var configDir string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the task consumer and the background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			return appServer.NewServer(cfg)
		},
	}

	cmd := &cobra.Command{
		Use:           "catering",
		Short:         "Booking financial lifecycle service for event catering",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.PersistentFlags().StringVarP(&configDir, "config", "c", "./config", "directory holding config.yaml")

	cmd.AddCommand(serve)
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			return appServer.Migrate(context.Background(), cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "catering %s\n", version)
		},
	})

	return cmd
}

func loadConfig(dir string) (*config.Config, error) {
	viperInstance, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}

	appServer.SetupLogging(cfg)
	return cfg, nil
}
