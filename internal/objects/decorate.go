package objects

import (
	"fmt"

	"github.com/MeKo-Tech/romhost/internal/stylefilter"
)

// DefaultPreset is the marker preset for objects without style hints.
const DefaultPreset = "islands#blackStretchyIcon"

// Decorator fills in the balloon, hint, icon and style properties the map
// widget reads, keeping whatever the stored bag already defines.
type Decorator struct {
	// NameKey is the property holding the display name. Defaults to "name".
	NameKey string
	// Preset is the default marker preset.
	Preset string
}

// Properties returns a new property bag for obj.
func (d Decorator) Properties(obj Object) map[string]any {
	nameKey := d.NameKey
	if nameKey == "" {
		nameKey = "name"
	}
	preset := d.Preset
	if preset == "" {
		preset = DefaultPreset
	}

	out := make(map[string]any, len(obj.Properties)+4)
	for k, v := range obj.Properties {
		out[k] = v
	}

	name := ""
	if v, ok := obj.Properties[nameKey]; ok && v != nil {
		name = fmt.Sprint(v)
	}

	if _, ok := out["hintContent"]; !ok {
		if name != "" {
			out["hintContent"] = name
		} else {
			out["hintContent"] = obj.ID
		}
	}
	if _, ok := out[stylefilter.PropIconContent]; !ok && name != "" {
		out[stylefilter.PropIconContent] = name
	}
	if _, ok := out["balloonContent"]; !ok && name != "" {
		out["balloonContent"] = name
	}

	opts, _ := out[stylefilter.PropOptions].(map[string]any)
	merged := make(map[string]any, len(opts)+1)
	for k, v := range opts {
		merged[k] = v
	}
	if _, ok := merged["preset"]; !ok {
		merged["preset"] = preset
	}
	out[stylefilter.PropOptions] = merged

	return out
}
