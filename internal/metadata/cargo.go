package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	docerrors "github.com/conneroisu/cargo-docserver/internal/errors"
)

// CargoProvider asks `cargo metadata` for the target directory and the first
// workspace package.
type CargoProvider struct {
	// Cargo is the cargo executable. Defaults to "cargo".
	Cargo string
	// ManifestPath is passed as --manifest-path when set.
	ManifestPath string
	// Dir is the working directory for the cargo invocation.
	Dir string
}

type cargoMetadata struct {
	Packages []struct {
		Name string `json:"name"`
	} `json:"packages"`
	TargetDirectory string `json:"target_directory"`
}

// DocRoot implements Provider.
func (p *CargoProvider) DocRoot(ctx context.Context) (DocRoot, error) {
	cargo := p.Cargo
	if cargo == "" {
		cargo = "cargo"
	}

	args := []string{"metadata", "--format-version", "1", "--no-deps"}
	if p.ManifestPath != "" {
		args = append(args, "--manifest-path", p.ManifestPath)
	}

	cmd := exec.CommandContext(ctx, cargo, args...)
	cmd.Dir = p.Dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return DocRoot{}, docerrors.NewMetadataError("cargo metadata failed", err)
	}

	return ParseCargoMetadata(out)
}

// ParseCargoMetadata extracts a DocRoot from `cargo metadata` JSON output.
func ParseCargoMetadata(data []byte) (DocRoot, error) {
	var meta cargoMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return DocRoot{}, docerrors.NewMetadataError("invalid cargo metadata output", err)
	}

	if len(meta.Packages) == 0 || meta.Packages[0].Name == "" {
		return DocRoot{}, docerrors.NewMetadataError("cargo metadata reported no packages", nil)
	}
	if meta.TargetDirectory == "" {
		return DocRoot{}, docerrors.NewMetadataError("cargo metadata reported no target directory", nil)
	}

	return DocRoot{
		Dir:         filepath.Join(meta.TargetDirectory, "doc"),
		PackageName: SanitizeName(meta.Packages[0].Name),
	}, nil
}
