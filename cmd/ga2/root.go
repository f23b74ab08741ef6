package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thebinaryforest/ga2/internal/iofs"
	"github.com/thebinaryforest/ga2/internal/iologger"
	"github.com/thebinaryforest/ga2/pkg/config"
	"github.com/thebinaryforest/ga2/pkg/ga2"
)

var (
	homeDir string
	cfg     *config.Config
)

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: fmt.Sprintf("version: %s\nbuild:   %s",
			ga2.Version, ga2.Build),
		Use:   "ga2",
		Short: "ga2 keeps biodiversity alerts in sync with occurrence data",
		Long: `ga2 ingests Darwin Core occurrence archives into PostgreSQL and
reconciles user-defined alerts against the imported snapshot.

The tool provides three main phases:
  - create: Create the database schema
  - import: Replace the occurrence snapshot from an archive
  - sync:   Reconcile alerts against the current snapshot

Configuration precedence (highest to lowest):
  1. Environment variables (GA2_*)
  2. Config file (~/.config/ga2/ga2.yaml)
  3. Built-in defaults

Environment Variables:
  Nested fields use underscores (database.host becomes GA2_DATABASE_HOST).

  Examples:
    GA2_DATABASE_HOST       PostgreSQL host
    GA2_DATABASE_PORT       PostgreSQL port
    GA2_DATABASE_USER       PostgreSQL user
    GA2_DATABASE_PASSWORD   PostgreSQL password
    GA2_DATABASE_DATABASE   Database name
    GA2_IMPORT_BATCH_SIZE   Import batch size
    GA2_LOG_LEVEL           Log level (debug/info/warn/error)
    GA2_JOBS_NUMBER         Concurrent alert workers for sync

  See 'go doc github.com/thebinaryforest/ga2/pkg/config' for the
  complete list.`,
		PersistentPreRunE: bootstrap,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	// Remove the automatic "ga2 version" prefix
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Flags().BoolP("version", "V", false, "version for ga2")

	rootCmd.AddCommand(getCreateCmd())
	rootCmd.AddCommand(getMigrateCmd())
	rootCmd.AddCommand(getImportCmd())
	rootCmd.AddCommand(getAlertsCmd())
	rootCmd.AddCommand(getSyncCmd())

	return rootCmd
}

func bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	// Initialize logging with hardcoded defaults.
	// Will be reconfigured later with user's config settings.
	defaultLog := config.LogConfig{
		Format:      "json",
		Level:       "info",
		Destination: "file",
	}
	if err = iologger.Init(config.LogDir(homeDir), defaultLog); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	var cfgViper *config.Config
	if cfgViper, err = initConfig(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfg = config.New()
	cfg.Update(cfgViper.ToOptions())
	cfg.Update([]config.Option{config.OptHomeDir(homeDir)})

	// Reconfigure logging with user's settings.
	if err = iologger.Init(config.LogDir(homeDir), cfg.Log); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded",
		"config_file", config.ConfigFilePath(homeDir))

	return nil
}

func initConfig(home string) (*config.Config, error) {
	var err error
	cfgPath := config.ConfigFilePath(home)
	v := viper.New()
	v.SetConfigFile(cfgPath)

	initEnvVars(v)

	if err = v.ReadInConfig(); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	var res config.Config
	if err = v.Unmarshal(&res); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	return &res, nil
}

func initEnvVars(v *viper.Viper) {
	// Set environment variables we want.
	// We bind them manually so it is clear which ones are allowed.
	// These match the fields included in config.ToOptions().
	v.SetEnvPrefix("GA2")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Database configuration
	v.BindEnv("database.host", "GA2_DATABASE_HOST")
	v.BindEnv("database.port", "GA2_DATABASE_PORT")
	v.BindEnv("database.user", "GA2_DATABASE_USER")
	v.BindEnv("database.password", "GA2_DATABASE_PASSWORD")
	v.BindEnv("database.database", "GA2_DATABASE_DATABASE")
	v.BindEnv("database.ssl_mode", "GA2_DATABASE_SSL_MODE")

	// Import configuration
	v.BindEnv("import.batch_size", "GA2_IMPORT_BATCH_SIZE")

	// Log configuration
	v.BindEnv("log.level", "GA2_LOG_LEVEL")
	v.BindEnv("log.format", "GA2_LOG_FORMAT")
	v.BindEnv("log.destination", "GA2_LOG_DESTINATION")

	// General configuration
	v.BindEnv("jobs_number", "GA2_JOBS_NUMBER")

	v.AutomaticEnv()
}
