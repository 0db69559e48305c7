// Package romsource builds the request template and options for the
// browser-side remote object manager.
package romsource

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/MeKo-Tech/romhost/internal/params"
)

// Placeholders substituted by the remote object manager per tile request.
const (
	PlaceholderTiles = "%t"
	PlaceholderBBox  = "%b"
	PlaceholderZoom  = "%z"
)

// APIPrefix is the path under which object sources are served.
const APIPrefix = "/api/v1/"

// Option keys understood by the remote object manager.
const (
	OptionPaddingTemplate = "paddingTemplate"
	OptionSplitRequests   = "splitRequests"
)

// Profile selects the query string shape of the request template.
type Profile string

const (
	// ProfileTiles sends the tile range, zoom and the page's debug and
	// clusterDepth parameters.
	ProfileTiles Profile = "tiles"
	// ProfileBBox additionally sends the bounding box and pins debug on
	// with a fixed cluster level.
	ProfileBBox Profile = "bbox"
)

// BBoxClusterLevel is the cluster level sent by ProfileBBox.
const BBoxClusterLevel = 2

var sourceNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidSourceName reports an error unless name can be embedded in a request
// path and a JSONP callback name: ASCII letters, digits, '_' and '-'.
func ValidSourceName(name string) error {
	if !sourceNameRe.MatchString(name) {
		return fmt.Errorf("invalid source name %q: want letters, digits, '_' or '-'", name)
	}
	return nil
}

// ParseProfile maps a profile name to a Profile. The empty string selects
// ProfileTiles.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProfileTiles:
		return ProfileTiles, nil
	case ProfileBBox:
		return ProfileBBox, nil
	default:
		return "", fmt.Errorf("unknown data source profile %q (want tiles or bbox)", s)
	}
}

// Config is everything the page needs to construct the data source.
type Config struct {
	Source      string         `json:"source"`
	Profile     Profile        `json:"profile"`
	URLTemplate string         `json:"url"`
	Options     map[string]any `json:"options"`
}

// New builds the data source configuration for the named object source.
func New(profile Profile, source string, p params.Params) (Config, error) {
	if err := ValidSourceName(source); err != nil {
		return Config{}, err
	}

	var tmpl string
	switch profile {
	case ProfileTiles, "":
		profile = ProfileTiles
		tmpl = TilesTemplate(source, p)
	case ProfileBBox:
		tmpl = BBoxTemplate(source)
	default:
		return Config{}, fmt.Errorf("unknown data source profile %q", profile)
	}

	return Config{
		Source:      source,
		Profile:     profile,
		URLTemplate: tmpl,
		Options: map[string]any{
			OptionPaddingTemplate: PaddingTemplate(source),
			OptionSplitRequests:   false,
		},
	}, nil
}

// TilesTemplate returns the tiles/zoom/debug/clusterDepth request template.
func TilesTemplate(source string, p params.Params) string {
	if p.Debug == "" {
		p.Debug = params.DefaultDebug
	}
	if p.ClusterDepth == "" {
		p.ClusterDepth = params.DefaultClusterDepth
	}
	return APIPrefix + source +
		"?tiles=" + PlaceholderTiles +
		"&zoom=" + PlaceholderZoom +
		// Escaped so a stray '&' or '#' cannot split the template; plain
		// values like "true" or "2" pass through unchanged.
		"&debug=" + url.QueryEscape(p.Debug) +
		"&clusterDepth=" + url.QueryEscape(p.ClusterDepth)
}

// BBoxTemplate returns the tiles/bbox/zoom request template with debug on
// and a fixed cluster level.
func BBoxTemplate(source string) string {
	return fmt.Sprintf("%s%s?tiles=%s&bbox=%s&zoom=%s&debug=true&clusterLevel=%d",
		APIPrefix, source, PlaceholderTiles, PlaceholderBBox, PlaceholderZoom, BBoxClusterLevel)
}

// PaddingTemplate returns the JSONP callback template. Distinct tile ranges
// and zooms get distinct callbacks, so browser caches keep them apart.
func PaddingTemplate(source string) string {
	return "rom_" + strings.ReplaceAll(source, "-", "_") + "_" + PlaceholderTiles + "_" + PlaceholderZoom
}
