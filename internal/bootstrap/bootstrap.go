// Package bootstrap assembles the map view once its prerequisites are ready.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/romhost/internal/romsource"
)

// ErrAlreadyInitialized is returned by Init after a successful Init.
var ErrAlreadyInitialized = errors.New("map already initialized")

// State is the lifecycle state of a Bootstrapper.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Readiness reports when the capabilities the map depends on are available.
// Ready blocks until then, or fails.
type Readiness interface {
	Ready(ctx context.Context) error
}

// ReadinessFunc adapts a function to Readiness.
type ReadinessFunc func(ctx context.Context) error

// Ready calls f.
func (f ReadinessFunc) Ready(ctx context.Context) error { return f(ctx) }

// AlwaysReady is a Readiness that never blocks.
var AlwaysReady Readiness = ReadinessFunc(func(context.Context) error { return nil })

// Bootstrapper runs the map initialization exactly once.
type Bootstrapper struct {
	settings MapSettings
	logger   *slog.Logger

	mu    sync.Mutex
	state State
	view  *MapView
}

// New returns an uninitialized Bootstrapper. Zero fields of settings are
// filled from DefaultMapSettings.
func New(settings MapSettings, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{
		settings: settings.withDefaults(),
		logger:   logger,
	}
}

// State returns the current lifecycle state.
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// View returns the initialized map view, or nil before Init succeeds.
func (b *Bootstrapper) View() *MapView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

// Init waits for ready, then builds the map view with layer attached as its
// overlay and the zoom control shrunk. On failure the Bootstrapper stays
// uninitialized and Init may be called again.
func (b *Bootstrapper) Init(ctx context.Context, ready Readiness, layer romsource.Config) (*MapView, error) {
	if b.State() == StateInitialized {
		return nil, ErrAlreadyInitialized
	}
	if ready == nil {
		ready = AlwaysReady
	}
	// Readiness may block for a while; State and View stay available.
	if err := ready.Ready(ctx); err != nil {
		b.log().Warn("map prerequisites not ready", "error", err)
		return nil, fmt.Errorf("waiting for map prerequisites: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateInitialized {
		return nil, ErrAlreadyInitialized
	}

	view := newMapView(b.settings)
	view.AddLayer(Layer{Kind: LayerRemoteObjectManager, Source: layer})

	zoom := view.Control(ControlZoom)
	if zoom != nil {
		zoom.Options.Set(OptionSize, SizeSmall)
	}

	b.view = view
	b.state = StateInitialized
	b.log().Debug("map initialized",
		"center", view.Settings.Center,
		"zoom", view.Settings.Zoom,
		"layer", layer.URLTemplate,
	)
	return view, nil
}

func (b *Bootstrapper) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}
