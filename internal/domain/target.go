package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Target is a URL the user asked to fetch.
//
// Identity is the URL exactly as entered. It is fixed at construction and
// never rewritten, even when the external tool later reports a different
// canonical URL; that one lives in Info. Title is display data only.
type Target struct {
	url   string
	Title string
}

// NewTarget validates rawURL and returns a Target for it.
func NewTarget(rawURL string) (Target, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return Target{url: rawURL}, nil
}

// URL returns the URL the target was created with.
func (t Target) URL() string {
	return t.url
}

// Equal reports whether both targets refer to the same URL. Titles are ignored.
func (t Target) Equal(other Target) bool {
	return t.url == other.url
}

func (t Target) String() string {
	return t.url
}
