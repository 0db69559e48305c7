// Package objects provides the named object sources served by the remote
// object endpoint.
package objects

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/paulmach/orb"
)

// ErrUnknownSource is returned by Registry.Get for unregistered names.
var ErrUnknownSource = errors.New("unknown object source")

// Object is a point object with its backend property bag.
type Object struct {
	Properties map[string]any
	ID         string
	// Point is (lon, lat).
	Point orb.Point
}

// Source answers bounds queries for one named object set.
type Source interface {
	Name() string
	// Objects returns the objects inside b. Min/Max of b are (lon, lat).
	Objects(ctx context.Context, b orb.Bound) ([]Object, error)
	// Ready blocks until the source can answer queries.
	Ready(ctx context.Context) error
	Close() error
}

// Registry maps names to sources.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry returns a registry holding sources.
func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds s under s.Name(). Names must be unique.
func (r *Registry) Register(s Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if name == "" {
		return fmt.Errorf("object source without a name")
	}
	if _, ok := r.sources[name]; ok {
		return fmt.Errorf("object source %q registered twice", name)
	}
	r.sources[name] = s
	return nil
}

// Get returns the named source.
func (r *Registry) Get(name string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return s, nil
}

// Names lists the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ready waits for every source. It fails with the first source error.
func (r *Registry) Ready(ctx context.Context) error {
	for _, name := range r.Names() {
		s, err := r.Get(name)
		if err != nil {
			return err
		}
		if err := s.Ready(ctx); err != nil {
			return fmt.Errorf("object source %q not ready: %w", name, err)
		}
	}
	return nil
}

// Close closes every source and returns the joined errors.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, s := range r.sources {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
