package mimetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"my_crate/index.html", "text/html"},
		{"INDEX.HTML", "text/html"},
		{"static.files/rustdoc.css", "text/css"},
		{"static.files/main.js", "application/javascript"},
		{"search-index.js", "application/javascript"},
		{"static.files/rust-logo.svg", "image/svg+xml"},
		{"static.files/SourceSerif4-Regular.ttf.woff2", "font/woff2"},
		{"crates.json", "application/json"},
		{"LICENSE", Fallback},
		{"hello.foo", Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Detect(tt.name))
		})
	}
}

func TestTableSubstitution(t *testing.T) {
	table := Table{".html": "application/xhtml+xml"}

	var infer Func = table.Lookup
	assert.Equal(t, "application/xhtml+xml", infer("index.html"))
	assert.Equal(t, Fallback, infer("noext"))
}
