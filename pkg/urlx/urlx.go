// Package urlx contains helpers for checking, fingerprinting and
// dissecting the URLs handled by the shortener.
package urlx

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Validate reports whether rawURL parses into a URL with both a scheme and a host.
func Validate(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != ""
}

// Hash returns the hex encoded SHA-256 digest of the exact bytes of rawURL.
func Hash(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// ExtractSlug returns the path of a full short URL without surrounding slashes.
// It returns an empty string when shortURL cannot be parsed.
func ExtractSlug(shortURL string) string {
	u, err := url.Parse(shortURL)
	if err != nil {
		return ""
	}

	return strings.Trim(u.Path, "/")
}
