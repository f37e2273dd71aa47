package errors

import (
	"fmt"
	"strings"
)

// ErrorSuggestion represents a helpful suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// ServerStartError generates suggestions for server startup failures
func ServerStartError(err error, port int) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{}

	errStr := err.Error()

	if strings.Contains(errStr, "address already in use") || strings.Contains(errStr, "bind") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Port already in use",
			Description: fmt.Sprintf("Port %d is already being used by another process", port),
			Command:     fmt.Sprintf("lsof -i :%d", port),
		})

		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Use a different port",
			Description: "Start the server on a different port",
			Command:     fmt.Sprintf("cargo docserver --port %d", port+1),
		})
	}

	if strings.Contains(errStr, "permission denied") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Permission denied",
			Description: "You don't have permission to bind to this port",
		})

		if port < 1024 {
			suggestions = append(suggestions, ErrorSuggestion{
				Title:       "Use unprivileged port",
				Description: "Ports below 1024 require root privileges",
				Command:     "cargo docserver --port 4000",
			})
		}
	}

	return suggestions
}

// MetadataLookupError generates suggestions when the crate cannot be located
func MetadataLookupError(err error, manifestPath string) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Run inside a cargo project",
			Description: "The server needs a Cargo.toml to find the crate name and target directory",
			Command:     "cargo locate-project",
		},
	}

	if manifestPath != "" {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Check the manifest path",
			Description: fmt.Sprintf("Verify that %s exists and is a valid manifest", manifestPath),
			Command:     "cat " + manifestPath,
		})
	}

	if strings.Contains(err.Error(), "executable file not found") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Install cargo or point at the docs directly",
			Description: "cargo was not found on PATH",
			Example:     "cargo-docserver docserver --doc-dir target/doc --package my_crate",
		})
	}

	return suggestions
}

// ConfigurationError generates suggestions for configuration issues
func ConfigurationError(configError string, configPath string) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check configuration file",
			Description: "Verify your .docserver.yml file exists and has valid syntax",
			Command:     "cat " + configPath,
		},
		{
			Title:       "Show effective configuration",
			Description: "Print the configuration resolved from all sources",
			Command:     "cargo-docserver config",
		},
	}

	if strings.Contains(configError, "yaml") || strings.Contains(configError, "unmarshal") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix YAML syntax",
			Description: "There's a syntax error in your YAML configuration",
			Example:     "Use proper indentation and avoid tabs",
		})
	}

	return suggestions
}

// FormatSuggestions formats suggestions into a user-friendly string
func FormatSuggestions(title string, suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var output strings.Builder
	output.WriteString(title + "\n\n")
	output.WriteString("Suggestions:\n")

	for i, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion.Title))
		if suggestion.Description != "" {
			output.WriteString(fmt.Sprintf("     %s\n", suggestion.Description))
		}
		if suggestion.Command != "" {
			output.WriteString(fmt.Sprintf("     Run: %s\n", suggestion.Command))
		}
		if suggestion.Example != "" {
			output.WriteString(fmt.Sprintf("     Example: %s\n", suggestion.Example))
		}
		output.WriteString("\n")
	}

	return output.String()
}

// EnhancedError wraps an error with suggestions
type EnhancedError struct {
	OriginalError error
	Title         string
	Suggestions   []ErrorSuggestion
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	return FormatSuggestions(e.Title, e.Suggestions)
}

// Unwrap returns the original error
func (e *EnhancedError) Unwrap() error {
	return e.OriginalError
}

// NewEnhancedError creates a new enhanced error with suggestions
func NewEnhancedError(title string, originalError error, suggestions []ErrorSuggestion) *EnhancedError {
	return &EnhancedError{
		OriginalError: originalError,
		Title:         title,
		Suggestions:   suggestions,
	}
}
