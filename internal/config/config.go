// Package config provides configuration management for the doc server using
// Viper for loading from files, environment variables, and command-line
// flags.
//
// Sources, highest precedence first: flags bound with viper.BindPFlag,
// DOCSERVER_* environment variables, the .docserver.yml file, and the
// defaults registered by SetDefaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/cargo-docserver/internal/logging"
	"github.com/conneroisu/cargo-docserver/internal/validation"
)

const (
	DefaultPort           = 4000
	DefaultHost           = "0.0.0.0"
	DefaultRebuildCommand = "cargo"
	DefaultDebounce       = 300 * time.Millisecond
)

// DefaultRebuildArgs are placed between the rebuild command and the
// user-supplied recompile arguments.
var DefaultRebuildArgs = []string{"doc"}

type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server" json:"server"`
	Docs        DocsConfig        `mapstructure:"docs" yaml:"docs" json:"docs"`
	Rebuild     RebuildConfig     `mapstructure:"rebuild" yaml:"rebuild" json:"rebuild"`
	Development DevelopmentConfig `mapstructure:"development" yaml:"development" json:"development"`
	Log         LogConfig         `mapstructure:"log" yaml:"log" json:"log"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port" yaml:"port" json:"port"`
	Host           string `mapstructure:"host" yaml:"host" json:"host"`
	Open           bool   `mapstructure:"open" yaml:"open" json:"open"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections" json:"max_connections"`
}

// DocsConfig controls how the documentation root is located.
type DocsConfig struct {
	ManifestPath string `mapstructure:"manifest_path" yaml:"manifest_path" json:"manifest_path"`
	Dir          string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Package      string `mapstructure:"package" yaml:"package" json:"package"`
	Cargo        string `mapstructure:"cargo" yaml:"cargo" json:"cargo"`
}

// RebuildConfig describes the rebuild command and what triggers it.
type RebuildConfig struct {
	Command       string        `mapstructure:"command" yaml:"command" json:"command"`
	Args          []string      `mapstructure:"args" yaml:"args" json:"args"`
	RecompileArgs string        `mapstructure:"recompile_args" yaml:"recompile_args" json:"recompile_args"`
	Stdin         bool          `mapstructure:"stdin" yaml:"stdin" json:"stdin"`
	Watch         []string      `mapstructure:"watch" yaml:"watch" json:"watch"`
	Debounce      time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
}

type DevelopmentConfig struct {
	LiveReload bool `mapstructure:"live_reload" yaml:"live_reload" json:"live_reload"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// ExtraArgs splits RecompileArgs on whitespace.
func (r RebuildConfig) ExtraArgs() []string {
	return strings.Fields(r.RecompileArgs)
}

// Addr returns the host:port the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SetDefaults registers default values on the global viper instance.
func SetDefaults() {
	viper.SetDefault("server.port", DefaultPort)
	viper.SetDefault("server.host", DefaultHost)
	viper.SetDefault("server.open", false)
	viper.SetDefault("server.max_connections", 0)

	viper.SetDefault("docs.cargo", "cargo")

	viper.SetDefault("rebuild.command", DefaultRebuildCommand)
	viper.SetDefault("rebuild.args", DefaultRebuildArgs)
	viper.SetDefault("rebuild.stdin", true)
	viper.SetDefault("rebuild.debounce", DefaultDebounce)

	viper.SetDefault("development.live_reload", false)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// Load resolves the configuration from the global viper instance.
func Load() (*Config, error) {
	SetDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// An explicit `args: null` in the config file decodes to nil.
	if config.Rebuild.Args == nil {
		config.Rebuild.Args = append([]string(nil), DefaultRebuildArgs...)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateRebuildConfig(&config.Rebuild); err != nil {
		return fmt.Errorf("rebuild config: %w", err)
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("log config: unknown format %q (text, json)", config.Log.Format)
	}

	return nil
}

func validateServerConfig(config *ServerConfig) error {
	// 0 asks the kernel for a free port, which tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", "/"}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	if config.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative")
	}

	return nil
}

func validateRebuildConfig(config *RebuildConfig) error {
	if err := validation.ValidateCommand(config.Command, nil); err != nil {
		return err
	}

	if config.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}

	return nil
}
