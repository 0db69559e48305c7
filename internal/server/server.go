// Package server wires the map page and the remote object endpoint into one
// HTTP handler.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/romhost/internal/bootstrap"
	"github.com/MeKo-Tech/romhost/internal/objects"
	"github.com/MeKo-Tech/romhost/internal/page"
	"github.com/MeKo-Tech/romhost/internal/params"
	"github.com/MeKo-Tech/romhost/internal/rom"
	"github.com/MeKo-Tech/romhost/internal/romsource"
	"github.com/MeKo-Tech/romhost/internal/stylefilter"
)

// Config configures the server.
type Config struct {
	// Profile selects the data source request template of the page.
	Profile romsource.Profile
	// DefaultSource is the object source shown when the page URL names
	// none. Defaults to the first registered name.
	DefaultSource string
	Settings      bootstrap.MapSettings
	Page          page.Config
	// ReadinessTimeout bounds the wait for the object sources on page
	// render (default: 10s).
	ReadinessTimeout time.Duration
	CacheMaxAge      time.Duration
	MaxTiles         uint64
	Decorator        objects.Decorator
	// WASMDir serves the browser build under /wasm/ when set.
	WASMDir string
}

// Server serves the map page and the object tiles.
type Server struct {
	registry *objects.Registry
	page     *page.Renderer
	rom      *rom.Handler
	cfg      Config
	logger   *slog.Logger

	pagesServed atomic.Int64
	pagesFailed atomic.Int64
}

// Status is the JSON body of /status.
type Status struct {
	Sources     []string          `json:"sources"`
	Profile     romsource.Profile `json:"profile"`
	PagesServed int64             `json:"pages_served"`
	PagesFailed int64             `json:"pages_failed"`
}

// New builds a server over registry.
func New(registry *objects.Registry, cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.Profile == "" {
		cfg.Profile = romsource.ProfileTiles
	}
	if cfg.ReadinessTimeout <= 0 {
		cfg.ReadinessTimeout = 10 * time.Second
	}
	names := registry.Names()
	if len(names) == 0 {
		return nil, errors.New("no object sources configured")
	}
	for _, name := range names {
		if err := romsource.ValidSourceName(name); err != nil {
			return nil, err
		}
	}
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = names[0]
	}
	if _, err := registry.Get(cfg.DefaultSource); err != nil {
		return nil, fmt.Errorf("default source: %w", err)
	}
	cfg.Page.WASM = cfg.Page.WASM || cfg.WASMDir != ""

	renderer, err := page.New(cfg.Page)
	if err != nil {
		return nil, err
	}

	romHandler := rom.NewHandler(registry, stylefilter.New(logger), rom.HandlerConfig{
		CacheMaxAge: cfg.CacheMaxAge,
		MaxTiles:    cfg.MaxTiles,
		Decorator:   cfg.Decorator,
	}, logger)

	return &Server{
		registry: registry,
		page:     renderer,
		rom:      romHandler,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /status", s.statusHandler())
	mux.Handle(romsource.APIPrefix+"{source}", withCORS(s.rom))
	if s.cfg.WASMDir != "" {
		mux.Handle("/wasm/", http.StripPrefix("/wasm/", http.FileServer(http.Dir(s.cfg.WASMDir))))
	}
	mux.HandleFunc("/", s.servePage)

	return withLogging(s.log(), mux)
}

// servePage bootstraps the map for one page load and renders it.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	source := q.Get("source")
	if source == "" {
		source = s.cfg.DefaultSource
	}
	if _, err := s.registry.Get(source); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	layer, err := romsource.New(s.cfg.Profile, source, params.Read(q))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ReadinessTimeout)
	defer cancel()

	view, err := bootstrap.New(s.cfg.Settings, s.logger).Init(ctx, s.registry, layer)
	if err != nil {
		s.pagesFailed.Add(1)
		s.log().Error("map bootstrap failed", "source", source, "error", err)
		http.Error(w, "map data is not available yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.page.Render(w, view); err != nil {
		s.pagesFailed.Add(1)
		s.log().Error("failed to render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	s.pagesServed.Add(1)
}

// Status returns the current server status.
func (s *Server) Status() Status {
	return Status{
		Sources:     s.registry.Names(),
		Profile:     s.cfg.Profile,
		PagesServed: s.pagesServed.Load(),
		PagesFailed: s.pagesFailed.Load(),
	}
}

func (s *Server) statusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		if err := json.NewEncoder(w).Encode(s.Status()); err != nil {
			s.log().Error("failed to encode status", "error", err)
		}
	})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
