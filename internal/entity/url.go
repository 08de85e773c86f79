// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a stored URL mapping together
// with the safety verdict captured when it was created.
package entity

import (
	"encoding/json"
	"errors"
	"time"
)

// UnsafeSlug is returned to callers in place of a slug when the submitted URL
// was flagged by the safety check. Generated slugs are never shorter than
// eight characters, so it cannot be mistaken for one.
const UnsafeSlug = "UNSAFE"

var (
	// ErrInvalidURL is returned when the submitted URL has no scheme or host.
	ErrInvalidURL = errors.New("invalid url")
	// ErrURLNotFound is returned when no safe URL exists for the given slug or hash.
	ErrURLNotFound = errors.New("url not found")
	// ErrSlugExists is returned when a safe URL with the same slug is already stored.
	ErrSlugExists = errors.New("slug exists")
	// ErrURLExists is returned when a safe URL with the same hash is already stored.
	ErrURLExists = errors.New("url exists")
	// ErrSafetyCheck is returned when the safety verdict could not be obtained.
	ErrSafetyCheck = errors.New("safety check failed")
)

// URL represents a shortened URL.
type URL struct {
	ID              int64           // ID is the unique identifier of the URL in the database.
	OriginalURL     string          // OriginalURL is the full URL that the slug resolves to.
	OriginalURLHash string          // OriginalURLHash is the SHA-256 fingerprint of OriginalURL.
	Slug            string          // Slug is the generated short identifier.
	IsSafe          bool            // IsSafe is the safety verdict captured at creation.
	UnsafeDetails   json.RawMessage // UnsafeDetails is the raw verdict payload for unsafe URLs.
	VisitCount      int64           // VisitCount is the number of successful resolves.
	CreatedAt       time.Time       // CreatedAt is the timestamp when the URL was created.
	UpdatedAt       time.Time       // UpdatedAt is the timestamp when the URL was last updated.
}

// PublicSlug returns the slug that may be shown to the submitter:
// the real slug for safe URLs and UnsafeSlug otherwise.
func (u *URL) PublicSlug() string {
	if !u.IsSafe {
		return UnsafeSlug
	}
	return u.Slug
}

// NewURL holds the values needed to persist a URL.
type NewURL struct {
	OriginalURL     string
	OriginalURLHash string
	Slug            string
	IsSafe          bool
	UnsafeDetails   json.RawMessage
}

// SafetyVerdict is the result of checking a URL against a threat list.
type SafetyVerdict struct {
	IsSafe  bool
	Details json.RawMessage
}
