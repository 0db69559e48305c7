// Package assets embeds the web page templates served by romhost.
package assets

import "embed"

// WebFS holds the map page template.
//
// NOTE: go:embed patterns must not use ".." and must be relative to this file.
//
//go:embed web/*.tmpl
var WebFS embed.FS
