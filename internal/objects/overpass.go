package objects

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/paulmach/orb"
	"golang.org/x/time/rate"
)

// DefaultOverpassEndpoint is the public Overpass API interpreter.
const DefaultOverpassEndpoint = "https://overpass-api.de/api/interpreter"

// Querier runs an Overpass QL query.
type Querier interface {
	Query(query string) (overpass.Result, error)
}

// OverpassConfig configures an OverpassSource.
type OverpassConfig struct {
	Endpoint string
	// Selector picks the nodes, e.g. "railway=station" or `["amenity"="cafe"]`.
	Selector string
	// RequestsPerSecond limits upstream queries (default: 1).
	RequestsPerSecond float64
	// Timeout is the server-side query timeout (default: 25s).
	Timeout time.Duration
	Client  *http.Client
}

// OverpassSource queries OpenStreetMap nodes live for each request.
type OverpassSource struct {
	name     string
	filter   string
	timeout  time.Duration
	client   Querier
	limiter  *rate.Limiter
	endpoint string
}

// NewOverpassSource creates a live source for OSM nodes matching cfg.Selector.
func NewOverpassSource(name string, cfg OverpassConfig) (*OverpassSource, error) {
	filter, err := ParseSelector(cfg.Selector)
	if err != nil {
		return nil, err
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOverpassEndpoint
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout + 10*time.Second}
	}

	// Create client (rate limited to 1 concurrent request)
	client := overpass.NewWithSettings(cfg.Endpoint, 1, cfg.Client)

	return &OverpassSource{
		name:     name,
		filter:   filter,
		timeout:  cfg.Timeout,
		client:   &client,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		endpoint: cfg.Endpoint,
	}, nil
}

// WithQuerier replaces the Overpass client. Used by tests.
func (s *OverpassSource) WithQuerier(q Querier) *OverpassSource {
	s.client = q
	return s
}

// ParseSelector turns "key=value" or "key" into an Overpass tag filter.
// Filters already in bracket form are passed through.
func ParseSelector(sel string) (string, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return "", fmt.Errorf("empty overpass selector")
	}
	if strings.HasPrefix(sel, "[") && strings.HasSuffix(sel, "]") {
		return sel, nil
	}
	if strings.ContainsAny(sel, `"[];()`) {
		return "", fmt.Errorf("invalid overpass selector %q", sel)
	}
	key, value, ok := strings.Cut(sel, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("invalid overpass selector %q", sel)
	}
	if !ok {
		return fmt.Sprintf("[%q]", key), nil
	}
	return fmt.Sprintf("[%q=%q]", key, strings.TrimSpace(value)), nil
}

// Query builds the Overpass QL query for the nodes inside b.
func (s *OverpassSource) Query(b orb.Bound) string {
	// Overpass bbox order is (south,west,north,east)
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
	return fmt.Sprintf("[out:json][timeout:%d];node%s(%s);out body;", int(s.timeout.Seconds()), s.filter, bbox)
}

// Name implements Source.
func (s *OverpassSource) Name() string { return s.name }

// Objects implements Source. Each call is one rate-limited upstream query.
func (s *OverpassSource) Objects(ctx context.Context, b orb.Bound) ([]Object, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	type queryResult struct {
		res overpass.Result
		err error
	}
	done := make(chan queryResult, 1)
	query := s.Query(b)
	go func() {
		// The client has no context support; the buffered channel lets
		// an abandoned query finish in the background.
		res, err := s.client.Query(query)
		done <- queryResult{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", r.err)
		}
		return NodesToObjects(&r.res), nil
	}
}

// Ready implements Source. Live sources have nothing to load.
func (s *OverpassSource) Ready(ctx context.Context) error { return nil }

// Close implements Source.
func (s *OverpassSource) Close() error { return nil }

// NodesToObjects converts the nodes of an Overpass result, ordered by id.
func NodesToObjects(result *overpass.Result) []Object {
	ids := make([]int64, 0, len(result.Nodes))
	for id := range result.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Object, 0, len(ids))
	for _, id := range ids {
		node := result.Nodes[id]
		if node == nil {
			continue
		}
		props := make(map[string]any, len(node.Tags)+1)
		for k, v := range node.Tags {
			props[k] = v
		}
		props["osm_id"] = "node/" + strconv.FormatInt(id, 10)
		out = append(out, Object{
			ID:         "node/" + strconv.FormatInt(id, 10),
			Point:      orb.Point{node.Lon, node.Lat},
			Properties: props,
		})
	}
	return out
}
