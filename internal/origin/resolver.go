// Package origin derives the normalized origin key used to track remote host health.
package origin

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrInvalidURL is returned when a target has no parseable host.
var ErrInvalidURL = errors.New("invalid url")

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
}

// Resolve maps an absolute URL to its origin key: the lowercased registrable domain
// (eTLD+1), with scheme, path, credentials and default ports stripped.
// IP literals and hosts without a public suffix (localhost) are kept as-is.
// Non-default ports are part of the key.
func Resolve(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}

	domain := registrableDomain(host)

	port := u.Port()
	if port == "" || port == defaultPorts[strings.ToLower(u.Scheme)] {
		return domain, nil
	}
	return net.JoinHostPort(domain, port), nil
}

// MustResolve is Resolve for static, known-good URLs. It panics on error.
func MustResolve(rawURL string) string {
	key, err := Resolve(rawURL)
	if err != nil {
		panic(err)
	}
	return key
}

func registrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	if !strings.Contains(host, ".") {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// host is itself a public suffix (e.g. "co.uk"); keep it whole
		return host
	}
	return domain
}
