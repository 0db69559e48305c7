//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/MeKo-Tech/romhost/internal/params"
	"github.com/MeKo-Tech/romhost/internal/romsource"
	"github.com/MeKo-Tech/romhost/internal/stylefilter"
)

var filter = stylefilter.New(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

func errorJSON(err error) string {
	out, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(out)
}

// dataSource is called from JavaScript as
// romhostDataSource(location.search, source[, profile]) and returns the
// data source configuration as JSON.
func dataSource(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorJSON(fmt.Errorf("missing arguments: want search, source[, profile]"))
	}

	profile := romsource.ProfileTiles
	if len(args) > 2 {
		p, err := romsource.ParseProfile(args[2].String())
		if err != nil {
			return errorJSON(err)
		}
		profile = p
	}

	cfg, err := romsource.New(profile, args[1].String(), params.FromRawQuery(args[0].String()))
	if err != nil {
		return errorJSON(err)
	}
	out, err := json.Marshal(cfg)
	if err != nil {
		return errorJSON(err)
	}
	return string(out)
}

// styleFilter is called from JavaScript as romhostStyleFilter(objectJSON)
// and returns {"keep": bool, "options": {...}} as JSON.
func styleFilter(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorJSON(fmt.Errorf("missing object argument"))
	}
	return string(filter.ApplyJSON([]byte(args[0].String())))
}

func main() {
	c := make(chan struct{})

	js.Global().Set("romhostDataSource", js.FuncOf(dataSource))
	js.Global().Set("romhostStyleFilter", js.FuncOf(styleFilter))

	fmt.Println("romhost WASM module loaded")
	<-c
}
