package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MeKo-Tech/romhost/internal/bootstrap"
	"github.com/MeKo-Tech/romhost/internal/objects"
	"github.com/MeKo-Tech/romhost/internal/page"
	"github.com/MeKo-Tech/romhost/internal/romsource"
	"github.com/MeKo-Tech/romhost/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the map page and the remote object endpoint",
	Example: `  romhost serve --source stations=overpass:railway=station
  romhost serve --source pois=sqlite:pois.db --source extra=geojson:extra.geojson --profile bbox`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().StringArray("source", nil, "Object source name=kind:target, kinds geojson, sqlite, overpass (repeatable)")
	serveCmd.Flags().String("default-source", "", "Source shown when the page URL names none (default: first by name)")
	serveCmd.Flags().String("profile", string(romsource.ProfileTiles), "Data source request profile (tiles, bbox)")
	serveCmd.Flags().String("api-key", "", "Yandex Maps JavaScript API key")
	serveCmd.Flags().String("lang", page.DefaultLang, "Map widget locale")
	serveCmd.Flags().String("title", "romhost", "Page title")
	serveCmd.Flags().Duration("cache-max-age", 0, "Cache-Control max-age of object tiles (0 disables caching)")
	serveCmd.Flags().Uint64("max-tiles", 1024, "Maximum tiles per object request")
	serveCmd.Flags().String("preset", objects.DefaultPreset, "Marker preset for objects without one")
	serveCmd.Flags().String("name-key", "name", "Property holding the object display name")
	serveCmd.Flags().String("wasm-dir", "", "Directory with romhost.wasm and wasm_exec.js served under /wasm/")
	serveCmd.Flags().Duration("readiness-timeout", 10*time.Second, "How long a page waits for object sources")
	serveCmd.Flags().String("center", "55.756363,37.623270", "Initial map center lat,lon")
	serveCmd.Flags().Int("zoom", 10, "Initial map zoom")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.sources", "source")
	mustBind("serve.default_source", "default-source")
	mustBind("serve.profile", "profile")
	mustBind("serve.api_key", "api-key")
	mustBind("serve.lang", "lang")
	mustBind("serve.title", "title")
	mustBind("serve.cache_max_age", "cache-max-age")
	mustBind("serve.max_tiles", "max-tiles")
	mustBind("serve.preset", "preset")
	mustBind("serve.name_key", "name-key")
	mustBind("serve.wasm_dir", "wasm-dir")
	mustBind("serve.readiness_timeout", "readiness-timeout")
	mustBind("serve.center", "center")
	mustBind("serve.zoom", "zoom")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	profile, err := romsource.ParseProfile(viper.GetString("serve.profile"))
	if err != nil {
		return err
	}
	settings, err := mapSettings(viper.GetString("serve.center"), viper.GetInt("serve.zoom"))
	if err != nil {
		return err
	}

	reg, err := openRegistry(viper.GetStringSlice("serve.sources"), overpassConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Error("failed to close object sources", "error", err)
		}
	}()

	srv, err := server.New(reg, server.Config{
		Profile:       profile,
		DefaultSource: viper.GetString("serve.default_source"),
		Settings:      settings,
		Page: page.Config{
			Title:  viper.GetString("serve.title"),
			APIKey: viper.GetString("serve.api_key"),
			Lang:   viper.GetString("serve.lang"),
		},
		ReadinessTimeout: viper.GetDuration("serve.readiness_timeout"),
		CacheMaxAge:      viper.GetDuration("serve.cache_max_age"),
		MaxTiles:         viper.GetUint64("serve.max_tiles"),
		Decorator: objects.Decorator{
			NameKey: viper.GetString("serve.name_key"),
			Preset:  viper.GetString("serve.preset"),
		},
		WASMDir: viper.GetString("serve.wasm_dir"),
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}

	logger.Info("romhost listening",
		"addr", addr,
		"sources", reg.Names(),
		"profile", profile,
		"wasm_dir", viper.GetString("serve.wasm_dir"),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// mapSettings builds the initial view from the center and zoom flags.
func mapSettings(center string, zoom int) (bootstrap.MapSettings, error) {
	settings := bootstrap.DefaultMapSettings()
	if center != "" {
		parts := strings.Split(center, ",")
		if len(parts) != 2 {
			return settings, fmt.Errorf("--center wants lat,lon, got %q", center)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return settings, fmt.Errorf("invalid --center latitude: %w", err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return settings, fmt.Errorf("invalid --center longitude: %w", err)
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return settings, fmt.Errorf("--center %q out of range", center)
		}
		settings.Center = [2]float64{lat, lon}
	}
	if zoom < 0 || zoom > 23 {
		return settings, fmt.Errorf("--zoom %d out of range [0,23]", zoom)
	}
	if zoom > 0 {
		settings.Zoom = zoom
	}
	return settings, nil
}

func overpassConfig() objects.OverpassConfig {
	return objects.OverpassConfig{
		Endpoint:          viper.GetString("overpass-endpoint"),
		RequestsPerSecond: viper.GetFloat64("overpass-rate"),
	}
}
