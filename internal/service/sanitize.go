package service

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// namePolicy strips all markup from author display names, which observers
// render verbatim. Submitted code is never sanitized.
var namePolicy = bluemonday.StrictPolicy()

func sanitizeAuthorName(name string) string {
	return strings.TrimSpace(namePolicy.Sanitize(name))
}
