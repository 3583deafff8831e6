package urlutil

import (
	"errors"
	"net/url"
	"strings"
)

// Normalize canonicalizes a job page URL: default https scheme, lowercase
// host without a www prefix, no fragment, no trailing slash.
func Normalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		// Scheme-less input parses as a bare path; reparse with the default
		// scheme so the host lands in the authority component.
		u, err = url.Parse("https://" + strings.TrimPrefix(raw, "//"))
		if err != nil {
			return "", err
		}
	}
	u.Fragment = ""
	u.Host = normalizeHost(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}

// IsAbsoluteHTTP reports whether raw is a syntactically valid absolute URL
// with an http or https scheme.
func IsAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}
