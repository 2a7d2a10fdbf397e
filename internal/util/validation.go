package util

import (
	"errors"
	"net/url"
	"strings"
)

// ValidatePushEndpoint checks a web push endpoint is an absolute https URL.
// Plain http is accepted for localhost so browsers in development work.
func ValidatePushEndpoint(endpoint string) error {
	if endpoint == "" {
		return errors.New("endpoint is required")
	}
	if len(endpoint) > 2048 {
		return errors.New("endpoint too long (max 2048 characters)")
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return errors.New("endpoint must be an absolute URL")
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := strings.ToLower(u.Hostname())
		if host == "localhost" || host == "127.0.0.1" {
			return nil
		}
	}
	return errors.New("endpoint must use https")
}
