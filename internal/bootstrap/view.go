package bootstrap

import (
	"github.com/MeKo-Tech/romhost/internal/romsource"
)

// Control names known to the map widget.
const (
	ControlZoom         = "zoomControl"
	ControlSearch       = "searchControl"
	ControlTypeSelector = "typeSelector"
	ControlFullscreen   = "fullscreenControl"
	ControlRouteButton  = "routeButtonControl"
)

const (
	OptionSize = "size"
	SizeSmall  = "small"
)

// LayerRemoteObjectManager is the only overlay kind the page knows.
const LayerRemoteObjectManager = "remoteObjectManager"

// Container is the id of the DOM element the map renders into.
const Container = "map"

// MapSettings fixes the initial view of the map.
type MapSettings struct {
	// Center is [latitude, longitude] in degrees.
	Center     [2]float64 `json:"center"`
	Zoom       int        `json:"zoom"`
	Controls   []string   `json:"controls"`
	Projection string     `json:"projection"`
	// Modules are awaited before the map is constructed in the browser.
	Modules []string `json:"modules"`
}

// DefaultMapSettings returns the initial view over central Moscow.
func DefaultMapSettings() MapSettings {
	return MapSettings{
		Center: [2]float64{55.756363, 37.623270},
		Zoom:   10,
		Controls: []string{
			ControlZoom,
			ControlSearch,
			ControlTypeSelector,
			ControlFullscreen,
			ControlRouteButton,
		},
		Projection: "sphericalMercator",
		Modules:    []string{"projection.wgs84Mercator", "projection.sphericalMercator"},
	}
}

func (s MapSettings) withDefaults() MapSettings {
	def := DefaultMapSettings()
	if s.Center == ([2]float64{}) {
		s.Center = def.Center
	}
	if s.Zoom == 0 {
		s.Zoom = def.Zoom
	}
	if len(s.Controls) == 0 {
		s.Controls = def.Controls
	}
	if s.Projection == "" {
		s.Projection = def.Projection
	}
	if len(s.Modules) == 0 {
		s.Modules = def.Modules
	}
	s.Controls = append([]string(nil), s.Controls...)
	s.Modules = append([]string(nil), s.Modules...)
	return s
}

// Options is a control's option bag.
type Options map[string]any

// Set assigns key.
func (o Options) Set(key string, value any) { o[key] = value }

// Get returns key and whether it was set.
func (o Options) Get(key string) (any, bool) {
	v, ok := o[key]
	return v, ok
}

// Control is a named map widget with options.
type Control struct {
	Name    string  `json:"name"`
	Options Options `json:"options"`
}

// Layer is an overlay attached to the map.
type Layer struct {
	Kind   string           `json:"kind"`
	Source romsource.Config `json:"source"`
}

// MapView is the fully assembled description the page replays in the
// browser.
type MapView struct {
	Container string      `json:"container"`
	Settings  MapSettings `json:"settings"`
	Controls  []*Control  `json:"controls"`
	Layers    []Layer     `json:"layers"`
}

func newMapView(s MapSettings) *MapView {
	v := &MapView{
		Container: Container,
		Settings:  s,
		Controls:  make([]*Control, 0, len(s.Controls)),
	}
	for _, name := range s.Controls {
		v.Controls = append(v.Controls, &Control{Name: name, Options: Options{}})
	}
	return v
}

// Control returns the named control, or nil if the map has none.
func (v *MapView) Control(name string) *Control {
	for _, c := range v.Controls {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddLayer appends an overlay.
func (v *MapView) AddLayer(l Layer) {
	v.Layers = append(v.Layers, l)
}
