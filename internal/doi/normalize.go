// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package doi verifies bibliographic identifiers against the DOI handle
// resolution service.
package doi

import (
	"regexp"
	"strings"
)

// prefixPattern matches resolver URL and scheme prefixes: "https://doi.org/",
// "http://dx.doi.org/", "doi:". Matching is case-insensitive.
var prefixPattern = regexp.MustCompile(`(?i)^(?:https?://(?:dx\.)?doi\.org/|doi:\s*)`)

// Normalize reduces an identifier to its bare form: surrounding whitespace,
// resolver prefixes, and trailing ".", "," and ";" are removed.
// "https://doi.org/10.1/abc." and "doi:10.1/abc" both normalize to "10.1/abc".
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	for {
		stripped := prefixPattern.ReplaceAllString(id, "")
		if stripped == id {
			break
		}
		id = strings.TrimSpace(stripped)
	}
	return strings.TrimRight(id, ".,;")
}

// Slug returns a filesystem-safe form of a normalized identifier.
func Slug(normalized string) string {
	return strings.NewReplacer("/", "-", ":", "-").Replace(normalized)
}
