// Package params resolves the page query parameters that shape the
// remote object layer request.
package params

import (
	"net/url"
	"strings"
)

// Defaults used when a parameter is absent or empty.
const (
	DefaultDebug        = "false"
	DefaultClusterDepth = "1"
)

// Query parameter names.
const (
	KeyDebug        = "debug"
	KeyClusterDepth = "clusterDepth"
)

// Params holds the resolved page parameters. Values are opaque strings and
// are passed to the data source URL verbatim.
type Params struct {
	Debug        string
	ClusterDepth string
}

// Default returns the parameters used when the page URL carries none.
func Default() Params {
	return Params{
		Debug:        DefaultDebug,
		ClusterDepth: DefaultClusterDepth,
	}
}

// Read resolves debug and clusterDepth from q, substituting defaults for
// absent or empty values.
func Read(q url.Values) Params {
	return Params{
		Debug:        valueOr(q, KeyDebug, DefaultDebug),
		ClusterDepth: valueOr(q, KeyClusterDepth, DefaultClusterDepth),
	}
}

// FromRawQuery resolves parameters from a raw query string such as
// location.search. A leading "?" is allowed. Pairs that fail to decode are
// skipped, so a malformed query degrades to defaults.
func FromRawQuery(raw string) Params {
	q, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return Read(q)
}

func valueOr(q url.Values, key, def string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return def
}
