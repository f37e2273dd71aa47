// Package metadata locates the documentation root and primary package name
// of the crate being served.
//
// Providers are queried on every request; Cached memoizes a successful
// lookup until it is invalidated, which the server does after each rebuild.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	docerrors "github.com/conneroisu/cargo-docserver/internal/errors"
)

// DocRoot identifies the documentation tree for the current project.
type DocRoot struct {
	// Dir is the absolute documentation root, usually <target>/doc.
	Dir string `json:"dir" yaml:"dir"`
	// PackageName is the crate name as rustdoc writes it (dashes become underscores).
	PackageName string `json:"package_name" yaml:"package_name"`
}

// IndexPath returns the request path of the package's landing page.
func (d DocRoot) IndexPath() string {
	return "/" + d.PackageName + "/index.html"
}

// Provider supplies the current DocRoot.
type Provider interface {
	DocRoot(ctx context.Context) (DocRoot, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (DocRoot, error)

// DocRoot calls f.
func (f ProviderFunc) DocRoot(ctx context.Context) (DocRoot, error) {
	return f(ctx)
}

// SanitizeName converts a package name into the directory name rustdoc uses.
func SanitizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// Static always returns the same DocRoot.
type Static DocRoot

// DocRoot returns the fixed root.
func (s Static) DocRoot(context.Context) (DocRoot, error) {
	return DocRoot(s), nil
}

// Chain tries each provider in order and returns the first success.
type Chain []Provider

// DocRoot implements Provider.
func (c Chain) DocRoot(ctx context.Context) (DocRoot, error) {
	var errs []error
	for _, p := range c {
		root, err := p.DocRoot(ctx)
		if err == nil {
			return root, nil
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return DocRoot{}, docerrors.NewMetadataError("no metadata providers configured", nil)
	}

	return DocRoot{}, docerrors.NewMetadataError("could not determine project metadata", errors.Join(errs...))
}

// Overrides replaces parts of the DocRoot reported by Base. When both Dir and
// PackageName are set, Base is never consulted.
type Overrides struct {
	Base        Provider
	Dir         string
	PackageName string
}

// DocRoot implements Provider.
func (o Overrides) DocRoot(ctx context.Context) (DocRoot, error) {
	var root DocRoot

	if o.Dir == "" || o.PackageName == "" {
		if o.Base == nil {
			return DocRoot{}, docerrors.NewMetadataError("no metadata provider for missing doc root fields", nil)
		}
		base, err := o.Base.DocRoot(ctx)
		if err != nil {
			return DocRoot{}, err
		}
		root = base
	}

	if o.Dir != "" {
		abs, err := filepath.Abs(o.Dir)
		if err != nil {
			return DocRoot{}, docerrors.NewMetadataError(fmt.Sprintf("invalid doc dir %q", o.Dir), err)
		}
		root.Dir = abs
	}
	if o.PackageName != "" {
		root.PackageName = SanitizeName(o.PackageName)
	}

	return root, nil
}

// Cached memoizes the first successful lookup of the wrapped provider.
// Failed lookups are not cached.
type Cached struct {
	provider Provider

	mu   sync.RWMutex
	root *DocRoot
}

// NewCached wraps provider with a cache.
func NewCached(provider Provider) *Cached {
	return &Cached{provider: provider}
}

// DocRoot implements Provider.
func (c *Cached) DocRoot(ctx context.Context) (DocRoot, error) {
	c.mu.RLock()
	if c.root != nil {
		root := *c.root
		c.mu.RUnlock()
		return root, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.root != nil {
		return *c.root, nil
	}

	root, err := c.provider.DocRoot(ctx)
	if err != nil {
		return DocRoot{}, err
	}
	c.root = &root

	return root, nil
}

// Invalidate drops the cached value so the next lookup reaches the provider.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.root = nil
	c.mu.Unlock()
}
