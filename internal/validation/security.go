// Package validation checks values the server hands to other processes or
// accepts from browsers: the rebuild command, the URL passed to the browser
// opener and websocket origins.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateCommand validates the rebuild command name. A nil allowlist
// accepts any non-empty command. Arguments are passed to the command as is.
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("command cannot be empty")
	}

	if allowedCommands != nil && !allowedCommands[command] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	return nil
}

// ValidateOrigin validates a websocket Origin header against the allowed
// hosts (host:port form) or full origins.
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}
