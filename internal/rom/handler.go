package rom

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/romhost/internal/objects"
	"github.com/MeKo-Tech/romhost/internal/tile"
)

// HandlerConfig configures the tile handler.
type HandlerConfig struct {
	// CacheMaxAge is sent as Cache-Control max-age. Zero sends no-store.
	CacheMaxAge time.Duration
	// MaxTiles bounds the tile range of one request. Defaults to DefaultMaxTiles.
	MaxTiles  uint64
	Decorator objects.Decorator
}

// Handler answers remote object manager tile requests from a registry of
// object sources.
type Handler struct {
	registry *objects.Registry
	filter   ObjectFilter
	cfg      HandlerConfig
	logger   *slog.Logger
}

// NewHandler returns a handler reading objects from registry and passing
// them through filter.
func NewHandler(registry *objects.Registry, filter ObjectFilter, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if cfg.MaxTiles == 0 {
		cfg.MaxTiles = DefaultMaxTiles
	}
	return &Handler{registry: registry, filter: filter, cfg: cfg, logger: logger}
}

// ServeHTTP serves GET /api/v1/{source}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.PathValue("source")
	if name == "" {
		name = path.Base(strings.TrimSuffix(r.URL.Path, "/"))
	}

	req, err := ParseRequest(r.URL.Query())
	if err != nil {
		h.fail(w, err)
		return
	}
	if n := req.Tiles.Count(); n > h.cfg.MaxTiles {
		h.fail(w, paramErr("tiles", req.Tiles.String(), "%d tiles requested, at most %d allowed", n, h.cfg.MaxTiles))
		return
	}

	src, err := h.registry.Get(name)
	if err != nil {
		h.fail(w, err)
		return
	}

	start := time.Now()
	objs, err := src.Objects(r.Context(), req.Bound())
	if err != nil {
		h.log().Error("failed to load objects", "source", name, "tiles", req.Tiles.String(), "error", err)
		http.Error(w, fmt.Sprintf("failed to load objects: %v", err), http.StatusBadGateway)
		return
	}

	c := NewCollection(h.filter)
	for _, o := range objs {
		c.Add(o.ID, o.Point, h.cfg.Decorator.Properties(o))
	}
	if req.Debug {
		req.Tiles.ForEach(func(t tile.Coords) { c.AddTile(t, req.ClusterDepth) })
	}
	if dropped := c.Dropped(); len(dropped) > 0 {
		h.log().Warn("dropped unsupported style options", "source", name, "keys", dropped)
	}

	body, contentType, err := c.Encode(req.Callback)
	if err != nil {
		h.log().Error("failed to encode response", "source", name, "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	sum := sha256.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`

	w.Header().Set("Cache-Control", h.cacheControl())
	w.Header().Set("ETag", etag)
	if etagMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body); err != nil {
		h.log().Error("failed to write response", "error", err)
		return
	}

	h.log().Debug("served objects",
		"source", name,
		"tiles", req.Tiles.String(),
		"objects", len(objs),
		"features", c.Len(),
		"duration", time.Since(start),
	)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var pe *ParamError
	switch {
	case errors.As(err, &pe):
		http.Error(w, pe.Error(), http.StatusBadRequest)
	case errors.Is(err, objects.ErrUnknownSource):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log().Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) cacheControl() string {
	if h.cfg.CacheMaxAge <= 0 {
		return "no-store"
	}
	return fmt.Sprintf("public, max-age=%d", int(h.cfg.CacheMaxAge.Seconds()))
}

func (h *Handler) log() *slog.Logger {
	if h != nil && h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// etagMatch reports whether an If-None-Match header value matches etag.
// Matching is weak: a W/ prefix is ignored on either side.
func etagMatch(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	etag = strings.TrimPrefix(etag, "W/")
	for candidate := range strings.SplitSeq(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == etag {
			return true
		}
	}
	return false
}
