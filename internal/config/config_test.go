package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:4000", cfg.Server.Addr())
	assert.False(t, cfg.Server.Open)
	assert.Equal(t, "cargo", cfg.Rebuild.Command)
	assert.Equal(t, []string{"doc"}, cfg.Rebuild.Args)
	assert.True(t, cfg.Rebuild.Stdin)
	assert.Equal(t, 300*time.Millisecond, cfg.Rebuild.Debounce)
	assert.Empty(t, cfg.Rebuild.ExtraArgs())
	assert.False(t, cfg.Development.LiveReload)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadOverrides(t *testing.T) {
	viper.Reset()
	viper.Set("server.port", 8080)
	viper.Set("server.host", "127.0.0.1")
	viper.Set("rebuild.recompile_args", "--no-deps  --features serde")
	viper.Set("rebuild.stdin", false)
	viper.Set("rebuild.watch", []string{"src", "examples"})
	viper.Set("rebuild.debounce", "1s")
	viper.Set("development.live_reload", true)
	viper.Set("docs.package", "my-crate")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, []string{"--no-deps", "--features", "serde"}, cfg.Rebuild.ExtraArgs())
	assert.False(t, cfg.Rebuild.Stdin)
	assert.Equal(t, []string{"src", "examples"}, cfg.Rebuild.Watch)
	assert.Equal(t, time.Second, cfg.Rebuild.Debounce)
	assert.True(t, cfg.Development.LiveReload)
	assert.Equal(t, "my-crate", cfg.Docs.Package)
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()

	path := filepath.Join(t.TempDir(), ".docserver.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 4100
  max_connections: 64
rebuild:
  command: cargo
  args: ["+nightly", "doc"]
  recompile_args: "--document-private-items"
log:
  level: debug
  format: json
`), 0o644))

	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4100, cfg.Server.Port)
	assert.Equal(t, 64, cfg.Server.MaxConnections)
	assert.Equal(t, []string{"+nightly", "doc"}, cfg.Rebuild.Args)
	assert.Equal(t, []string{"--document-private-items"}, cfg.Rebuild.ExtraArgs())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadPassesRecompileArgsThrough(t *testing.T) {
	tests := []struct {
		name     string
		args     string
		expected []string
	}{
		{
			name:     "quoted config value",
			args:     "--config=build.rustdocflags=['--cfg','docsrs']",
			expected: []string{"--config=build.rustdocflags=['--cfg','docsrs']"},
		},
		{
			name:     "windows path",
			args:     `--target-dir=C:\tmp\doc`,
			expected: []string{`--target-dir=C:\tmp\doc`},
		},
		{
			name:     "shell syntax",
			args:     "--features=a,b --no-deps $HOME;x|y",
			expected: []string{"--features=a,b", "--no-deps", "$HOME;x|y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			viper.Set("rebuild.recompile_args", tt.args)
			viper.Set("rebuild.args", []string{"doc", `--config=doc.browser="firefox"`})

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Rebuild.ExtraArgs())
			assert.Equal(t, []string{"doc", `--config=doc.browser="firefox"`}, cfg.Rebuild.Args)
		})
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"port too large", "server.port", 70000},
		{"negative port", "server.port", -1},
		{"host injection", "server.host", "localhost;rm"},
		{"negative max connections", "server.max_connections", -5},
		{"empty command", "rebuild.command", ""},
		{"blank command", "rebuild.command", "   "},
		{"unknown log level", "log.level", "chatty"},
		{"unknown log format", "log.format", "xml"},
		{"unparseable port", "server.port", "not-a-port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			viper.Set(tt.key, tt.value)

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
