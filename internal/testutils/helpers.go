// Package testutils holds fixtures shared by the package tests: throwaway
// crates, documentation trees and hostile input cases.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/cargo-docserver/internal/config"
)

// CreateTempCrate writes a minimal crate with a generated landing page and
// returns the crate directory. Dashes in name become underscores in the doc
// tree, as rustdoc does.
func CreateTempCrate(t *testing.T, name string) string {
	t.Helper()

	dir := t.TempDir()
	docName := SanitizedName(name)

	manifest := "[package]\nname = \"" + name + "\"\nversion = \"0.1.0\"\nedition = \"2021\"\n"
	WriteFiles(t, dir, map[string]string{
		"Cargo.toml": manifest,
		"src/lib.rs": "//! " + name + "\n",
	})
	WriteFiles(t, filepath.Join(dir, "target", "doc"), map[string]string{
		docName + "/index.html": "<html><body>" + docName + "</body></html>",
	})

	return dir
}

// SanitizedName mirrors how rustdoc names a crate's doc directory.
func SanitizedName(name string) string {
	out := []byte(name)
	for i, c := range out {
		if c == '-' {
			out[i] = '_'
		}
	}
	return string(out)
}

// WriteFiles creates files below root, making parent directories as needed.
// Keys are slash separated.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

// CreateDocTree writes files into a fresh documentation root and returns it.
func CreateDocTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	WriteFiles(t, root, files)
	return root
}

// CreateTestConfig returns a configuration that serves docDir on a free
// loopback port and rebuilds with a no-op command.
func CreateTestConfig(docDir, packageName string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
		},
		Docs: config.DocsConfig{
			Dir:     docDir,
			Package: packageName,
			Cargo:   "cargo",
		},
		Rebuild: config.RebuildConfig{
			Command:  "true",
			Stdin:    true,
			Debounce: 50 * time.Millisecond,
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "text",
		},
	}
}

// SecurityTestCases contains hostile request paths and arguments full of
// shell syntax. Paths must never escape the doc root; arguments must reach
// the rebuild command byte for byte.
var SecurityTestCases = struct {
	PathTraversal []string
	ShellSyntax   []string
}{
	PathTraversal: []string{
		"/../../../etc/passwd",
		"/../../../../../etc/passwd",
		"/my_crate/../../etc/passwd",
		"/./../../etc/passwd",
		"/..",
		"/my_crate/..",
		"/..\\..\\windows\\system32",
		"/my_crate/index.html\x00.png",
	},
	ShellSyntax: []string{
		"--features; rm -rf /",
		"--features && rm -rf /",
		"--features | cat /etc/passwd",
		"--features`rm -rf /`",
		"--features$(rm -rf /)",
		"--target-dir>/tmp/out",
		"--features\nrm -rf /",
	},
}

// WaitForFileChange waits for a file to be modified (useful for testing file watchers)
func WaitForFileChange(
	t *testing.T,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()

	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}
