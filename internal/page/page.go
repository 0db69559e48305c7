// Package page renders the HTML page that boots the map in the browser.
package page

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/MeKo-Tech/romhost/assets"
	"github.com/MeKo-Tech/romhost/internal/bootstrap"
)

// DefaultLang is the map widget locale used when none is configured.
const DefaultLang = "ru_RU"

// Config configures the page.
type Config struct {
	Title  string
	APIKey string
	Lang   string
	// WASM loads /wasm/romhost.wasm and prefers its style filter over the
	// inline one.
	WASM bool
}

type data struct {
	Title  string
	APIKey string
	Lang   string
	WASM   bool
	View   *bootstrap.MapView
}

// Renderer renders the map page.
type Renderer struct {
	tmpl *template.Template
	cfg  Config
}

// New parses the embedded page template.
func New(cfg Config) (*Renderer, error) {
	if cfg.Lang == "" {
		cfg.Lang = DefaultLang
	}
	if cfg.Title == "" {
		cfg.Title = "romhost"
	}
	tmpl, err := template.ParseFS(assets.WebFS, "web/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	return &Renderer{tmpl: tmpl, cfg: cfg}, nil
}

// Render writes the page for an initialized map view.
func (r *Renderer) Render(w io.Writer, view *bootstrap.MapView) error {
	if view == nil || len(view.Layers) == 0 {
		return fmt.Errorf("map view has no layer")
	}

	// Render into a buffer so a template error never leaves a half page.
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, data{
		Title:  r.cfg.Title,
		APIKey: r.cfg.APIKey,
		Lang:   r.cfg.Lang,
		WASM:   r.cfg.WASM,
		View:   view,
	})
	if err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}
