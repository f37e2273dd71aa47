// Package cmd provides the command-line interface for cargo-docserver.
//
// The binary is meant to be installed on PATH so cargo picks it up as the
// `cargo docserver` subcommand; cargo then invokes it as
// `cargo-docserver docserver [flags]`.
//
// Configuration sources, highest precedence first:
//
//  1. Command-line flags (--port, --recompile-args, ...)
//  2. DOCSERVER_* environment variables (DOCSERVER_SERVER_PORT, ...)
//  3. The config file: --config, then DOCSERVER_CONFIG_FILE, then
//     .docserver.yml in the working directory
//  4. Built-in defaults
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/cargo-docserver/internal/config"
	docerrors "github.com/conneroisu/cargo-docserver/internal/errors"
	"github.com/conneroisu/cargo-docserver/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cargo-docserver",
	Short: "Serve a crate's rustdoc output and rebuild it on demand",
	Long: `cargo-docserver serves the documentation generated by ` + "`cargo doc`" + ` over HTTP
and regenerates it without restarting the server.

Quick Start:
  cargo docserver                      Serve target/doc on port 4000
  cargo docserver -r "--all-features"  Pass extra arguments to cargo doc
  cargo docserver -w src --live-reload Rebuild on change and refresh the browser

Press Enter in the terminal to rebuild the documentation.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .docserver.yml, can also use DOCSERVER_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
	})
}

// bindFlags binds each named flag to its viper key.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

// initConfig points viper at the config file and the environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("DOCSERVER_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".docserver")
	}

	// DOCSERVER_SERVER_PORT, DOCSERVER_REBUILD_RECOMPILE_ARGS, ...
	viper.SetEnvPrefix("DOCSERVER")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configPath names the config file for error messages.
func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return ".docserver.yml"
}

// loadConfig loads and validates the configuration, attaching suggestions on
// failure.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		path := configPath()
		return nil, docerrors.NewEnhancedError(
			"Failed to load configuration",
			docerrors.NewConfigError("configuration is invalid", err),
			docerrors.ConfigurationError(err.Error(), path),
		)
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.Format
	return logging.NewLogger(logCfg), nil
}
