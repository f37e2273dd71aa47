package validation

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ValidateURL accepts the server's own base URL, http://host:port with
// nothing after the port, before it is handed to the platform browser opener.
// host is an IP literal or a plain DNS name.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" {
		return fmt.Errorf("invalid URL scheme %q: only http is served", parsed.Scheme)
	}
	if parsed.User != nil || parsed.Opaque != "" || parsed.RawQuery != "" || parsed.Fragment != "" {
		return fmt.Errorf("URL %q has more than a host and port", rawURL)
	}
	if parsed.Path != "" && parsed.Path != "/" {
		return fmt.Errorf("URL %q has a path", rawURL)
	}

	host, port, err := net.SplitHostPort(parsed.Host)
	if err != nil {
		return fmt.Errorf("URL %q must name a host and port: %w", rawURL, err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	if net.ParseIP(host) == nil && !isHostname(host) {
		return fmt.Errorf("invalid host %q", host)
	}

	return nil
}

// isHostname reports whether s is made only of DNS labels: letters, digits
// and inner hyphens, separated by dots.
func isHostname(s string) bool {
	if s == "" || len(s) > 253 {
		return false
	}

	labelLen := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.':
			if labelLen == 0 || s[i-1] == '-' {
				return false
			}
			labelLen = 0
		case c == '-':
			if labelLen == 0 {
				return false
			}
			labelLen++
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			labelLen++
		default:
			return false
		}
		if labelLen > 63 {
			return false
		}
	}

	return labelLen > 0 && s[len(s)-1] != '-'
}
