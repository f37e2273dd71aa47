package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/cargo-docserver/internal/config"
	docerrors "github.com/conneroisu/cargo-docserver/internal/errors"
	"github.com/conneroisu/cargo-docserver/internal/logging"
	"github.com/conneroisu/cargo-docserver/internal/metadata"
	"github.com/conneroisu/cargo-docserver/internal/rebuild"
	"github.com/conneroisu/cargo-docserver/internal/testutils"
	"github.com/conneroisu/cargo-docserver/internal/version"
)

// syncBuffer lets a test read output that another goroutine is writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(t *testing.T, docDir string) *config.Config {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Docs.Dir = docDir
	cfg.Docs.Package = "my_crate"
	cfg.Rebuild.Command = "true"
	cfg.Rebuild.Args = nil
	return cfg
}

func TestDocServerCommand_Flags(t *testing.T) {
	assert.Contains(t, docserverCmd.Aliases, "serve")

	port := docserverCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "4000", port.DefValue)
	assert.Equal(t, "p", port.Shorthand)

	host := docserverCmd.Flags().Lookup("host")
	require.NotNil(t, host)
	assert.Equal(t, "0.0.0.0", host.DefValue)

	recompile := docserverCmd.Flags().Lookup("recompile-args")
	require.NotNil(t, recompile)
	assert.Equal(t, "r", recompile.Shorthand)

	for _, name := range []string{"manifest-path", "doc-dir", "package", "watch", "live-reload", "open", "no-stdin", "max-connections", "debounce"} {
		assert.NotNil(t, docserverCmd.Flags().Lookup(name), name)
	}
	for _, name := range []string{"config", "log-level", "log-format"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("server.port", 70000)

	_, err := loadConfig()
	require.Error(t, err)

	var enhanced *docerrors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	assert.Equal(t, docerrors.ErrorTypeConfig, docerrors.TypeOf(err))
	assert.Contains(t, err.Error(), "Suggestions:")
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger(config.LogConfig{Level: "loud", Format: "text"})
	assert.Error(t, err)
}

func TestNewProvider_Overrides(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Docs.Package = "my-crate"
	cfg.Docs.Cargo = "/nonexistent/cargo"

	root, err := newProvider(cfg).DocRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dir, root.Dir)
	assert.Equal(t, "my_crate", root.PackageName)
}

func TestNewProvider_ManifestFallback(t *testing.T) {
	project := testutils.CreateTempCrate(t, "hello-world")
	manifest := filepath.Join(project, "Cargo.toml")
	t.Setenv("CARGO_TARGET_DIR", "")

	cfg := testConfig(t, "")
	cfg.Docs.Package = ""
	cfg.Docs.Cargo = "/nonexistent/cargo"
	cfg.Docs.ManifestPath = manifest

	root, err := newProvider(cfg).DocRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello_world", root.PackageName)
	assert.Equal(t, filepath.Join(project, "target", "doc"), root.Dir)
}

func TestServeDocs_EndToEnd(t *testing.T) {
	docDir := testutils.CreateDocTree(t, map[string]string{"my_crate/index.html": "<html>OK</html>"})

	cfg := testConfig(t, docDir)
	color.NoColor = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- serveDocs(ctx, cfg, logging.Discard(), strings.NewReader("\n\n"), out)
	}()

	urlPattern := regexp.MustCompile(`http://[^/\s]+`)
	var base string
	require.Eventually(t, func() bool {
		base = urlPattern.FindString(out.String())
		return base != ""
	}, 5*time.Second, 10*time.Millisecond)

	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get(base + "/")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>OK</html>", string(body))
	assert.Contains(t, out.String(), "press Enter")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serveDocs did not return after cancel")
	}
}

func TestServeDocs_MetadataFailure(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Docs.Package = ""
	cfg.Docs.Cargo = "/nonexistent/cargo"
	cfg.Docs.ManifestPath = filepath.Join(t.TempDir(), "Cargo.toml")

	err := serveDocs(context.Background(), cfg, logging.Discard(), nil, io.Discard)
	require.Error(t, err)
	assert.Equal(t, docerrors.ErrorTypeMetadata, docerrors.TypeOf(err))
	assert.Contains(t, err.Error(), "Failed to locate")
}

func TestServeDocs_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig(t, t.TempDir())
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port

	err = serveDocs(context.Background(), cfg, logging.Discard(), nil, io.Discard)
	require.Error(t, err)
	assert.Equal(t, docerrors.ErrorTypeBind, docerrors.TypeOf(err))
	assert.Contains(t, err.Error(), "Failed to start server")
}

func TestSignalSources(t *testing.T) {
	cfg := testConfig(t, t.TempDir())

	sources, err := signalSources(cfg, logging.Discard(), strings.NewReader(""))
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "stdin", sources[0].Name())

	cfg.Rebuild.Stdin = false
	sources, err = signalSources(cfg, logging.Discard(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, sources)

	cfg.Rebuild.Watch = []string{"."}
	sources, err = signalSources(cfg, logging.Discard(), nil)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "watch", sources[0].Name())
}

func TestPrintBanner(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	sources := []rebuild.Source{
		&rebuild.LineSource{},
		&rebuild.WatchSource{Paths: []string{"src", "Cargo.toml"}},
	}
	printBanner(&out, "http://localhost:4000", metadata.DocRoot{Dir: "/p/target/doc", PackageName: "my_crate"},
		[]string{"cargo", "doc", "--no-deps"}, sources, true)

	text := out.String()
	assert.Contains(t, text, "http://localhost:4000/my_crate/index.html")
	assert.Contains(t, text, "/p/target/doc")
	assert.Contains(t, text, "cargo doc --no-deps")
	assert.Contains(t, text, "press Enter")
	assert.Contains(t, text, "changes under src, Cargo.toml")
	assert.Contains(t, text, "live reload enabled")
}

func TestWriteConfig(t *testing.T) {
	cfg := testConfig(t, "")

	var out bytes.Buffer
	require.NoError(t, writeConfig(&out, cfg, "yaml"))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	server, ok := decoded["server"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1", server["host"])
	assert.Contains(t, out.String(), "debounce: 300ms")

	out.Reset()
	require.NoError(t, writeConfig(&out, cfg, "json"))
	var fromJSON config.Config
	require.NoError(t, json.Unmarshal(out.Bytes(), &fromJSON))
	assert.Equal(t, cfg.Server, fromJSON.Server)

	assert.Error(t, writeConfig(&out, cfg, "toml"))
}

func TestWriteVersion(t *testing.T) {
	info := version.Info{Version: "v0.3.0", GitCommit: "abcdef0123", GoVersion: "go1.24.4", Platform: "linux/amd64"}

	var out bytes.Buffer
	require.NoError(t, writeVersion(&out, info, "text", true))
	assert.Equal(t, "v0.3.0 (abcdef0)\n", out.String())

	out.Reset()
	require.NoError(t, writeVersion(&out, info, "text", false))
	assert.Contains(t, out.String(), "cargo-docserver v0.3.0")
	assert.Contains(t, out.String(), "Platform: linux/amd64")

	out.Reset()
	require.NoError(t, writeVersion(&out, info, "json", false))
	assert.Contains(t, out.String(), `"version": "v0.3.0"`)

	assert.Error(t, writeVersion(&out, info, "xml", false))
}
