// Package security provides shared validation for URLs and origins.
package security

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ValidateShareBase checks the base URL a share link is built on and returns
// it without query or fragment. Only absolute http and https URLs with a host
// and no user info are accepted.
func ValidateShareBase(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// Only allow http and https schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("URL must have a host")
	}

	// Credentials would leak into every copied link
	if parsed.User != nil {
		return nil, fmt.Errorf("URL must not contain user info")
	}

	base := *parsed
	base.RawQuery = ""
	base.ForceQuery = false
	base.Fragment = ""
	base.RawFragment = ""
	if base.Path == "" {
		base.Path = "/"
	}
	return &base, nil
}

// OriginChecker returns a WebSocket origin check. With no configured origins
// only same-host requests (or requests without an Origin header) pass; "*"
// allows everything.
func OriginChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}

		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
