package profile

import (
	"fmt"
	"strings"
)

var proxySchemes = []string{"http://", "https://", "socks4://", "socks5://"}

// ParseProxy normalizes a proxy string for the browser's --proxy-server
// flag. Empty input stays empty; a missing scheme defaults to http://.
func ParseProxy(raw string) string {
	p := strings.TrimSpace(raw)
	if p == "" {
		return ""
	}
	for _, scheme := range proxySchemes {
		if strings.HasPrefix(p, scheme) {
			return p
		}
	}
	return "http://" + p
}

// MaskProxy renders a proxy for display with its credentials hidden.
func MaskProxy(raw string) string {
	p := ParseProxy(raw)
	if p == "" {
		return ""
	}
	at := strings.LastIndex(p, "@")
	if at < 0 {
		return p
	}
	schemeEnd := strings.Index(p, "://") + len("://")
	return p[:schemeEnd] + "***:***@" + p[at+1:]
}

// ExtractHost returns the bare host from a proxy string, without scheme,
// credentials, or port. Hostnames are accepted alongside IP literals.
func ExtractHost(raw string) (string, error) {
	p := ParseProxy(raw)
	if p == "" {
		return "", fmt.Errorf("empty proxy string")
	}
	if i := strings.Index(p, "://"); i >= 0 {
		p = p[i+len("://"):]
	}
	if at := strings.LastIndex(p, "@"); at >= 0 {
		p = p[at+1:]
	}
	if colon := strings.LastIndex(p, ":"); colon >= 0 {
		p = p[:colon]
	}
	if p == "" {
		return "", fmt.Errorf("no host in proxy string: %q", raw)
	}
	return p, nil
}
