package cmd

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/romhost/internal/objects"
	"github.com/MeKo-Tech/romhost/internal/romsource"
)

// Object source kinds accepted by --source.
const (
	kindGeoJSON  = "geojson"
	kindSQLite   = "sqlite"
	kindOverpass = "overpass"
)

// sourceSpec is one --source value: name=kind:target.
type sourceSpec struct {
	Name   string
	Kind   string
	Target string
}

// parseSourceSpec parses "name=kind:target". The target is a file path for
// geojson and sqlite and a tag selector for overpass.
func parseSourceSpec(s string) (sourceSpec, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok {
		return sourceSpec{}, fmt.Errorf("invalid source %q: want name=kind:target", s)
	}
	kind, target, ok := strings.Cut(rest, ":")
	if !ok {
		return sourceSpec{}, fmt.Errorf("invalid source %q: want name=kind:target", s)
	}

	spec := sourceSpec{
		Name:   strings.TrimSpace(name),
		Kind:   strings.ToLower(strings.TrimSpace(kind)),
		Target: strings.TrimSpace(target),
	}
	if spec.Name == "" || spec.Target == "" {
		return sourceSpec{}, fmt.Errorf("invalid source %q: empty name or target", s)
	}
	if err := romsource.ValidSourceName(spec.Name); err != nil {
		return sourceSpec{}, err
	}
	switch spec.Kind {
	case kindGeoJSON, kindSQLite, kindOverpass:
	default:
		return sourceSpec{}, fmt.Errorf("invalid source %q: unknown kind %q (want geojson, sqlite or overpass)", s, spec.Kind)
	}
	return spec, nil
}

// openSource opens the object source described by spec.
func openSource(spec sourceSpec, overpassCfg objects.OverpassConfig) (objects.Source, error) {
	switch spec.Kind {
	case kindGeoJSON:
		src, err := objects.LoadGeoJSON(spec.Name, spec.Target)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Info("loaded geojson source", "name", spec.Name, "path", spec.Target, "objects", src.Len(), "skipped", src.Skipped())
		}
		return src, nil
	case kindSQLite:
		return objects.OpenSQLite(spec.Name, spec.Target)
	case kindOverpass:
		overpassCfg.Selector = spec.Target
		return objects.NewOverpassSource(spec.Name, overpassCfg)
	default:
		return nil, fmt.Errorf("unknown source kind %q", spec.Kind)
	}
}

// openRegistry opens every source in specs. Already opened sources are
// closed when a later one fails.
func openRegistry(specs []string, overpassCfg objects.OverpassConfig) (*objects.Registry, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one --source is required")
	}

	reg, err := objects.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, s := range specs {
		spec, err := parseSourceSpec(s)
		if err != nil {
			reg.Close()
			return nil, err
		}
		src, err := openSource(spec, overpassCfg)
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("source %q: %w", spec.Name, err)
		}
		if err := reg.Register(src); err != nil {
			src.Close()
			reg.Close()
			return nil, err
		}
	}
	return reg, nil
}
