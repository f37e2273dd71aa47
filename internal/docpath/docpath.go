// Package docpath maps request paths onto files below a documentation root.
//
// The index heuristic in ToIndexPath treats any path containing a dot as a
// file, including dots in directory segments ("/foo.bar/baz" is left alone).
package docpath

import (
	"errors"
	"strings"
)

// IndexDocument is appended to directory-like paths.
const IndexDocument = "index.html"

// ErrTraversal is returned for paths that would leave the documentation root.
var ErrTraversal = errors.New("path escapes documentation root")

// StripLeadingSlashes removes every leading '/' from path.
func StripLeadingSlashes(path string) string {
	return strings.TrimLeft(path, "/")
}

// ToIndexPath trims trailing slashes and appends "/index.html" unless the
// remaining path contains a dot.
func ToIndexPath(path string) string {
	trimmed := strings.TrimRight(path, "/")
	if strings.Contains(trimmed, ".") {
		return trimmed
	}
	return trimmed + "/" + IndexDocument
}

// Resolve turns a raw request path into a slash separated path relative to
// the documentation root.
func Resolve(requestPath string) (string, error) {
	if strings.ContainsAny(requestPath, "\\\x00") {
		return "", ErrTraversal
	}

	resolved := StripLeadingSlashes(ToIndexPath(StripLeadingSlashes(requestPath)))

	for _, segment := range strings.Split(resolved, "/") {
		if segment == ".." {
			return "", ErrTraversal
		}
	}

	return resolved, nil
}
