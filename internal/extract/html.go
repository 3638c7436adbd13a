// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"
)

var htmlFence = regexp.MustCompile("(?s)```html\\s*\\n?(.*?)```")

const htmlClose = "</html>"

// HTML returns the HTML document embedded in text: the body of a ```html
// fence when present, otherwise the span from <!DOCTYPE or <html up to the
// last </html>. Anchors match case-insensitively.
func HTML(text string) (string, error) {
	if m := htmlFence.FindStringSubmatch(text); m != nil {
		if body := strings.TrimSpace(m[1]); body != "" {
			return body, nil
		}
	}
	lower := strings.ToLower(text)
	start := strings.Index(lower, "<!doctype")
	if start < 0 {
		start = strings.Index(lower, "<html")
	}
	if start < 0 {
		return "", &MalformedResponseError{Reason: "no HTML document found"}
	}
	end := strings.LastIndex(lower, htmlClose)
	if end < start {
		return "", &MalformedResponseError{Reason: "HTML document is not closed"}
	}
	return text[start : end+len(htmlClose)], nil
}
