package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	docerrors "github.com/conneroisu/cargo-docserver/internal/errors"
)

// ManifestProvider reads Cargo.toml directly. It is used when cargo itself is
// unavailable and understands only the common layout: the package name from
// [package] and the target directory from CARGO_TARGET_DIR or ./target.
type ManifestProvider struct {
	// ManifestPath defaults to Cargo.toml in the working directory.
	ManifestPath string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
}

// DocRoot implements Provider.
func (p *ManifestProvider) DocRoot(_ context.Context) (DocRoot, error) {
	manifestPath := p.ManifestPath
	if manifestPath == "" {
		manifestPath = "Cargo.toml"
	}

	absManifest, err := filepath.Abs(manifestPath)
	if err != nil {
		return DocRoot{}, docerrors.NewMetadataError("invalid manifest path", err)
	}

	var manifest cargoManifest
	if _, err := toml.DecodeFile(absManifest, &manifest); err != nil {
		return DocRoot{}, docerrors.NewMetadataError(fmt.Sprintf("failed to parse %s", absManifest), err)
	}

	if manifest.Package.Name == "" {
		return DocRoot{}, docerrors.NewMetadataError(fmt.Sprintf("%s has no [package] name", absManifest), nil)
	}

	getenv := p.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	targetDir := getenv("CARGO_TARGET_DIR")
	if targetDir == "" {
		targetDir = filepath.Join(filepath.Dir(absManifest), "target")
	} else if !filepath.IsAbs(targetDir) {
		if targetDir, err = filepath.Abs(targetDir); err != nil {
			return DocRoot{}, docerrors.NewMetadataError("invalid CARGO_TARGET_DIR", err)
		}
	}

	return DocRoot{
		Dir:         filepath.Join(targetDir, "doc"),
		PackageName: SanitizeName(manifest.Package.Name),
	}, nil
}
