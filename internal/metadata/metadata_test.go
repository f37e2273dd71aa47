package metadata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/conneroisu/cargo-docserver/internal/errors"
)

const sampleMetadata = `{
  "packages": [
    {"name": "my-crate", "version": "0.1.0", "manifest_path": "/work/my-crate/Cargo.toml"},
    {"name": "helper", "version": "0.1.0", "manifest_path": "/work/helper/Cargo.toml"}
  ],
  "workspace_members": ["my-crate 0.1.0 (path+file:///work/my-crate)"],
  "target_directory": "/work/target",
  "version": 1,
  "workspace_root": "/work"
}`

func TestParseCargoMetadata(t *testing.T) {
	root, err := ParseCargoMetadata([]byte(sampleMetadata))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/work/target", "doc"), root.Dir)
	assert.Equal(t, "my_crate", root.PackageName)
	assert.Equal(t, "/my_crate/index.html", root.IndexPath())
}

func TestParseCargoMetadataErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", "{"},
		{"no packages", `{"packages": [], "target_directory": "/t"}`},
		{"no target directory", `{"packages": [{"name": "a"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCargoMetadata([]byte(tt.input))
			require.Error(t, err)
			assert.Equal(t, docerrors.ErrorTypeMetadata, docerrors.TypeOf(err))
		})
	}
}

func TestCargoProviderMissingExecutable(t *testing.T) {
	p := &CargoProvider{Cargo: filepath.Join(t.TempDir(), "no-such-cargo")}

	_, err := p.DocRoot(context.Background())
	require.Error(t, err)
	assert.Equal(t, docerrors.ErrorTypeMetadata, docerrors.TypeOf(err))
}

func TestManifestProvider(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "Cargo.toml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
[package]
name = "cargo-docserver"
version = "0.1.0"
edition = "2021"

[dependencies]
hyper = "0.12"
`), 0o644))

	t.Run("default target dir", func(t *testing.T) {
		p := &ManifestProvider{ManifestPath: manifest, Getenv: func(string) string { return "" }}
		root, err := p.DocRoot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "target", "doc"), root.Dir)
		assert.Equal(t, "cargo_docserver", root.PackageName)
	})

	t.Run("CARGO_TARGET_DIR", func(t *testing.T) {
		custom := filepath.Join(dir, "custom-target")
		p := &ManifestProvider{ManifestPath: manifest, Getenv: func(key string) string {
			if key == "CARGO_TARGET_DIR" {
				return custom
			}
			return ""
		}}
		root, err := p.DocRoot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(custom, "doc"), root.Dir)
	})
}

func TestManifestProviderErrors(t *testing.T) {
	dir := t.TempDir()

	workspace := filepath.Join(dir, "Cargo.toml")
	require.NoError(t, os.WriteFile(workspace, []byte("[workspace]\nmembers = [\"a\"]\n"), 0o644))

	_, err := (&ManifestProvider{ManifestPath: workspace}).DocRoot(context.Background())
	assert.Equal(t, docerrors.ErrorTypeMetadata, docerrors.TypeOf(err))

	_, err = (&ManifestProvider{ManifestPath: filepath.Join(dir, "missing.toml")}).DocRoot(context.Background())
	assert.Equal(t, docerrors.ErrorTypeMetadata, docerrors.TypeOf(err))
}

func TestChain(t *testing.T) {
	failing := ProviderFunc(func(context.Context) (DocRoot, error) {
		return DocRoot{}, errors.New("cargo not installed")
	})
	ok := Static{Dir: "/docs", PackageName: "my_crate"}

	root, err := Chain{failing, ok}.DocRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "my_crate", root.PackageName)

	_, err = Chain{failing, failing}.DocRoot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cargo not installed")
	assert.Equal(t, docerrors.ErrorTypeMetadata, docerrors.TypeOf(err))

	_, err = Chain{}.DocRoot(context.Background())
	assert.Error(t, err)
}

func TestOverrides(t *testing.T) {
	base := Static{Dir: "/work/target/doc", PackageName: "my_crate"}

	root, err := Overrides{Base: base, PackageName: "other-crate"}.DocRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/work/target/doc", root.Dir)
	assert.Equal(t, "other_crate", root.PackageName)

	dir := t.TempDir()
	root, err = Overrides{Dir: dir, PackageName: "x"}.DocRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dir, root.Dir)

	_, err = Overrides{Dir: dir}.DocRoot(context.Background())
	assert.Error(t, err)
}

func TestCached(t *testing.T) {
	var calls atomic.Int32
	var name atomic.Value
	name.Store("first")

	cached := NewCached(ProviderFunc(func(context.Context) (DocRoot, error) {
		calls.Add(1)
		return DocRoot{Dir: "/docs", PackageName: name.Load().(string)}, nil
	}))

	for i := 0; i < 3; i++ {
		root, err := cached.DocRoot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "first", root.PackageName)
	}
	assert.Equal(t, int32(1), calls.Load())

	name.Store("second")
	cached.Invalidate()

	root, err := cached.DocRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", root.PackageName)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	var calls atomic.Int32
	cached := NewCached(ProviderFunc(func(context.Context) (DocRoot, error) {
		if calls.Add(1) == 1 {
			return DocRoot{}, errors.New("transient")
		}
		return DocRoot{Dir: "/docs", PackageName: "ok"}, nil
	}))

	_, err := cached.DocRoot(context.Background())
	assert.Error(t, err)

	root, err := cached.DocRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", root.PackageName)
}
