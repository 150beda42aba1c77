package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emilythestrangee/demandboard/backend/internal/config"
	"github.com/emilythestrangee/demandboard/backend/internal/database"
	"github.com/emilythestrangee/demandboard/backend/internal/logging"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

const serviceName = "demandboard-api"

var configPath string

var rootCmd = &cobra.Command{
	Use:          "demandboard",
	Short:        "Demandboard - problem leaderboard API",
	Version:      Version,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file (overrides DEMANDBOARD_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds the service logger from it.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logging.New(serviceName, cfg.Log.Level, cfg.Log.Format)
	log.WithFields(logrus.Fields{
		"version": Version,
		"driver":  cfg.Database.Driver,
		"atomic":  cfg.Signals.Atomic,
	}).Info("configuration loaded")
	return cfg, log, nil
}

// openStore picks the store implementation named by database.driver.
func openStore(cfg *config.Config, log logrus.FieldLogger) (database.Database, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		return database.NewMemory(), nil
	default:
		return database.NewPostgres(cfg.Database, log)
	}
}
