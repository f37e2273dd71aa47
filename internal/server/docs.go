package server

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/conneroisu/cargo-docserver/internal/docpath"
	"github.com/conneroisu/cargo-docserver/internal/errors"
	"github.com/conneroisu/cargo-docserver/internal/livereload"
	"github.com/conneroisu/cargo-docserver/internal/logging"
	"github.com/conneroisu/cargo-docserver/internal/metadata"
	"github.com/conneroisu/cargo-docserver/internal/mimetype"
)

const notFoundBody = "not found"

// FileSystem opens the documentation root for reading.
type FileSystem func(dir string) fs.FS

// DocHandler serves files below the DocRoot reported by a metadata provider.
// The provider is asked on every request so a rebuild that moves the target
// directory is picked up without a restart.
type DocHandler struct {
	provider    metadata.Provider
	logger      logging.Logger
	contentType mimetype.Func
	open        FileSystem
	liveReload  bool
}

// DocOption configures a DocHandler.
type DocOption func(*DocHandler)

// WithContentType replaces the content type inference.
func WithContentType(fn mimetype.Func) DocOption {
	return func(h *DocHandler) {
		h.contentType = fn
	}
}

// WithFileSystem replaces how the documentation root is opened.
func WithFileSystem(open FileSystem) DocOption {
	return func(h *DocHandler) {
		h.open = open
	}
}

// WithLiveReload makes HTML responses load the live reload client.
func WithLiveReload(enabled bool) DocOption {
	return func(h *DocHandler) {
		h.liveReload = enabled
	}
}

// NewDocHandler creates a DocHandler.
func NewDocHandler(provider metadata.Provider, logger logging.Logger, opts ...DocOption) *DocHandler {
	if logger == nil {
		logger = logging.Discard()
	}

	h := &DocHandler{
		provider:    provider,
		logger:      logger.WithComponent("docs"),
		contentType: mimetype.Detect,
		open:        os.DirFS,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ServeIndex redirects to the package landing page without touching disk.
func (h *DocHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	root, err := h.provider.DocRoot(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), err, "Failed to resolve documentation root")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Location", root.IndexPath())
	w.WriteHeader(http.StatusFound)
}

// ServeDoc serves the file a request path resolves to.
func (h *DocHandler) ServeDoc(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	root, err := h.provider.DocRoot(ctx)
	if err != nil {
		h.logger.Error(ctx, err, "Failed to resolve documentation root")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	resolved, err := docpath.Resolve(r.URL.Path)
	if err != nil {
		h.logger.Warn(ctx, err, "Rejected request path", "path", r.URL.Path)
		NotFound(w, r)
		return
	}

	h.logger.Debug(ctx, "Looking up file", "path", r.URL.Path, "root", root.Dir, "file", resolved)

	data, err := h.read(root.Dir, resolved)
	if err != nil {
		h.fail(ctx, w, r, err)
		return
	}

	contentType := h.contentType(resolved)
	if h.liveReload && strings.HasPrefix(contentType, "text/html") {
		data = livereload.InjectScript(data)
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// read returns the contents of name below dir. A directory is reported as
// missing.
func (h *DocHandler) read(dir, name string) ([]byte, error) {
	if dir == "" {
		return nil, errors.NewMetadataError("documentation root is empty", nil)
	}
	name = path.Clean(name)

	f, err := h.open(dir).Open(name)
	if err != nil {
		return nil, errors.ClassifyRead(name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.ClassifyRead(name, err)
	}
	if info.IsDir() {
		return nil, errors.NewNotFoundError(name, nil).WithContext("reason", "directory")
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.ClassifyRead(name, err)
	}

	return data, nil
}

func (h *DocHandler) fail(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status == http.StatusNotFound {
		h.logger.Warn(ctx, err, "File not found", "path", r.URL.Path)
		NotFound(w, r)
		return
	}

	h.logger.Error(ctx, err, "Failed to read file", "path", r.URL.Path)
	w.WriteHeader(status)
}

// NotFound writes the plain "not found" response used for every miss.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	io.WriteString(w, notFoundBody)
}
