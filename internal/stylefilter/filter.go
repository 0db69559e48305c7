// Package stylefilter applies backend-supplied style hints to remote
// objects before they are displayed.
package stylefilter

import (
	"fmt"
	"log/slog"
)

// Reserved property keys.
const (
	PropOptions     = "options"
	PropIconContent = "iconContent"
)

// Properties is the validated property bag of a remote object.
type Properties struct {
	IconContent string
	Options     StyleOptions
	// Extra holds every other property (hintContent, balloonContent, name...)
	// untouched.
	Extra map[string]any
}

// ParseProperties splits a raw property bag into the typed fields and the
// pass-through remainder. Option keys with unsupported values are returned
// in dropped.
func ParseProperties(raw map[string]any) (p Properties, dropped []string) {
	p.Extra = make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case PropOptions:
			p.Options, dropped = ParseStyleOptions(v)
		case PropIconContent:
			if s, ok := v.(string); ok {
				p.IconContent = s
			} else if v != nil {
				p.IconContent = fmt.Sprint(v)
			}
		default:
			p.Extra[k] = v
		}
	}
	return p, dropped
}

// Map flattens the properties back into a raw bag.
func (p Properties) Map() map[string]any {
	out := make(map[string]any, len(p.Extra)+2)
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.IconContent != "" {
		out[PropIconContent] = p.IconContent
	}
	if len(p.Options) > 0 {
		out[PropOptions] = p.Options.Map()
	}
	return out
}

// Object is a remote object as seen by the filter: backend properties plus
// the live style options that the map renders with.
type Object struct {
	ID         any
	Properties Properties
	Options    StyleOptions
}

// Filter copies style hints onto objects. It never excludes an object.
type Filter struct {
	logger *slog.Logger
}

// New returns a Filter that traces icon contents to logger at debug level.
func New(logger *slog.Logger) *Filter {
	return &Filter{logger: logger}
}

// Apply copies every entry of obj.Properties.Options onto obj.Options and
// reports whether the object should be shown, which is always.
func (f *Filter) Apply(obj *Object) bool {
	if obj == nil {
		return true
	}
	if len(obj.Properties.Options) > 0 {
		if obj.Options == nil {
			obj.Options = make(StyleOptions, len(obj.Properties.Options))
		}
		for k, v := range obj.Properties.Options {
			obj.Options[k] = v
		}
	}
	if obj.Properties.IconContent != "" {
		f.log().Debug("object icon content", "id", obj.ID, "icon_content", obj.Properties.IconContent)
	}
	return true
}

func (f *Filter) log() *slog.Logger {
	if f != nil && f.logger != nil {
		return f.logger
	}
	return slog.Default()
}
