package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/romhost/internal/objectdb"
	"github.com/MeKo-Tech/romhost/internal/objects"
	"github.com/MeKo-Tech/romhost/internal/tile"
	"github.com/MeKo-Tech/romhost/internal/worker"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// maxFetchTiles bounds one fetch run; each tile is one Overpass query.
const maxFetchTiles = 100000

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Prefetch OpenStreetMap objects into an object database",
	Long: `Fetch the OpenStreetMap nodes matching a tag selector inside a bounding box
from the Overpass API, tile by tile, and store them in a SQLite object
database.`,
	Example: `  romhost fetch --bbox 37.3,55.5,37.9,56.0 --selector railway=station -o stations.db`,
	RunE:    runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("bbox", "", "Bounding box: minLon,minLat,maxLon,maxLat (e.g., \"37.3,55.5,37.9,56.0\")")
	fetchCmd.Flags().Int("zoom", 12, "Zoom level of the fetch tiles (minimum zoom with --max-zoom)")
	fetchCmd.Flags().Int("max-zoom", -1, "Maximum zoom level; tiles of every level from --zoom up to it are fetched (default: --zoom)")
	fetchCmd.Flags().String("selector", "", "Overpass tag selector, e.g. railway=station (required)")
	fetchCmd.Flags().StringP("output", "o", "", "Output database file path (required)")
	fetchCmd.Flags().String("name", "", "Dataset name (default: the selector)")
	fetchCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	fetchCmd.Flags().Bool("progress", true, "Show progress bar")
	fetchCmd.Flags().Bool("allow-failures", false, "Keep the fetched objects even if some tiles fail")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"fetch.bbox", "bbox"},
		{"fetch.zoom", "zoom"},
		{"fetch.max_zoom", "max-zoom"},
		{"fetch.selector", "selector"},
		{"fetch.output", "output"},
		{"fetch.name", "name"},
		{"fetch.workers", "workers"},
		{"fetch.progress", "progress"},
		{"fetch.allow_failures", "allow-failures"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, fetchCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	bboxStr := viper.GetString("fetch.bbox")
	zoom := viper.GetInt("fetch.zoom")
	maxZoom := viper.GetInt("fetch.max_zoom")
	selector := viper.GetString("fetch.selector")
	output := viper.GetString("fetch.output")
	name := viper.GetString("fetch.name")
	workers := viper.GetInt("fetch.workers")
	showProgress := viper.GetBool("fetch.progress")
	allowFailures := viper.GetBool("fetch.allow_failures")

	if logger == nil {
		initLogging()
	}

	if output == "" {
		return fmt.Errorf("--output is required")
	}
	bbox, err := parseBBox(bboxStr)
	if err != nil {
		return fmt.Errorf("invalid bbox: %w", err)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if name == "" {
		name = selector
	}

	cfg := overpassConfig()
	cfg.Selector = selector
	src, err := objects.NewOverpassSource(name, cfg)
	if err != nil {
		return err
	}

	bound := orb.Bound{Min: orb.Point{bbox[0], bbox[1]}, Max: orb.Point{bbox[2], bbox[3]}}
	tiles, err := fetchTiles(bound, zoom, maxZoom)
	if err != nil {
		return err
	}

	logger.Info("Starting object fetch",
		"bbox", bboxStr,
		"zoom", zoom,
		"max_zoom", maxZoom,
		"selector", selector,
		"tiles", len(tiles),
		"workers", workers,
		"output", output,
	)

	w, err := objectdb.New(output, objectdb.Metadata{
		Name:        name,
		Description: "OpenStreetMap nodes matching " + selector,
		Attribution: "© OpenStreetMap contributors",
		Origin:      "overpass:" + selector,
		Bounds:      bbox,
	})
	if err != nil {
		return fmt.Errorf("failed to create object database: %w", err)
	}
	defer w.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tasks := make([]worker.Task, 0, len(tiles))
	for _, coords := range tiles {
		tasks = append(tasks, worker.Task{Coords: coords})
	}

	progress := worker.NewProgress(len(tasks), showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Fetcher:    tileFetcher(src, w, bound),
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount, objectCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Tile fetch failed", "coords", r.Task.Coords.String(), "error", r.Err)
			continue
		}
		objectCount += r.Objects
	}

	logger.Info(progress.Summary())

	if failedCount > 0 {
		if !allowFailures {
			return fmt.Errorf("%d tiles failed to fetch", failedCount)
		}
		logger.Warn("Some tiles failed to fetch, but continuing due to --allow-failures flag", "failed_count", failedCount)
	}

	if err := w.Close(); err != nil {
		return err
	}
	logger.Info("Fetch complete", "output", output, "objects", objectCount, "stored", w.Written())
	return nil
}

// fetchTiles returns the tiles covering bound at every zoom in
// [minZoom,maxZoom]. A negative maxZoom means minZoom only.
func fetchTiles(bound orb.Bound, minZoom, maxZoom int) ([]tile.Coords, error) {
	if maxZoom < 0 {
		maxZoom = minZoom
	}
	if minZoom < 0 || minZoom > tile.MaxZoom {
		return nil, fmt.Errorf("--zoom %d out of range [0,%d]", minZoom, tile.MaxZoom)
	}
	if maxZoom < minZoom || maxZoom > tile.MaxZoom {
		return nil, fmt.Errorf("--max-zoom %d out of range [%d,%d]", maxZoom, minZoom, tile.MaxZoom)
	}
	if n := tile.TileCount(bound, uint32(minZoom), uint32(maxZoom)); n > maxFetchTiles {
		return nil, fmt.Errorf("bbox needs %d tiles, more than %d; narrow the bbox or zoom range", n, maxFetchTiles)
	}
	return tile.TilesInBound(bound, uint32(minZoom), uint32(maxZoom)), nil
}

// tileFetcher stores the objects of src inside each tile, clipped to limit.
// Objects on a shared tile edge are stored once, keyed by id.
func tileFetcher(src objects.Source, w *objectdb.Writer, limit orb.Bound) worker.Fetcher {
	return worker.FetcherFunc(func(ctx context.Context, coords tile.Coords) (int, error) {
		objs, err := src.Objects(ctx, coords.Bound())
		if err != nil {
			return 0, err
		}
		n := 0
		for _, o := range objs {
			if !limit.Contains(o.Point) {
				continue
			}
			rec := objectdb.Record{ID: o.ID, Lat: o.Point.Lat(), Lon: o.Point.Lon(), Properties: o.Properties}
			if err := w.Write(rec); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	})
}

// parseBBox parses a bounding box string "minLon,minLat,maxLon,maxLat" into [4]float64.
func parseBBox(s string) ([4]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return [4]float64{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	var bbox [4]float64
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return [4]float64{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		bbox[i] = val
	}

	// Validate
	if bbox[0] >= bbox[2] {
		return [4]float64{}, fmt.Errorf("minLon (%.4f) must be < maxLon (%.4f)", bbox[0], bbox[2])
	}
	if bbox[1] >= bbox[3] {
		return [4]float64{}, fmt.Errorf("minLat (%.4f) must be < maxLat (%.4f)", bbox[1], bbox[3])
	}
	if bbox[1] < -90 || bbox[3] > 90 || bbox[0] < -180 || bbox[2] > 180 {
		return [4]float64{}, fmt.Errorf("bbox %v outside WGS84 range", bbox)
	}

	return bbox, nil
}
