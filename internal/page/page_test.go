package page

import (
	"context"
	"strings"
	"testing"

	"github.com/MeKo-Tech/romhost/internal/bootstrap"
	"github.com/MeKo-Tech/romhost/internal/params"
	"github.com/MeKo-Tech/romhost/internal/romsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testView(t *testing.T) *bootstrap.MapView {
	t.Helper()
	src, err := romsource.New(romsource.ProfileTiles, "moscow", params.Default())
	require.NoError(t, err)

	view, err := bootstrap.New(bootstrap.MapSettings{}, nil).Init(context.Background(), bootstrap.AlwaysReady, src)
	require.NoError(t, err)
	return view
}

func TestRender(t *testing.T) {
	r, err := New(Config{APIKey: "k-1", Lang: "en_US"})
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, r.Render(&sb, testView(t)))
	out := sb.String()

	assert.Contains(t, out, `<div id="map"></div>`)
	assert.Contains(t, out, "https://api-maps.yandex.ru/2.1/?lang=en_US&apikey=k-1")
	assert.Contains(t, out, "new ymaps.RemoteObjectManager")
	assert.Contains(t, out, "manager.setFilter(styleFilter)")
	assert.Contains(t, out, "rom_moscow_%t_%z")
	assert.Contains(t, out, `"size":"small"`)
	assert.Contains(t, out, "projection.sphericalMercator")
	assert.NotContains(t, out, "wasm_exec.js")
}

func TestRender_WASM(t *testing.T) {
	r, err := New(Config{WASM: true})
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, r.Render(&sb, testView(t)))
	out := sb.String()

	assert.Contains(t, out, "/wasm/wasm_exec.js")
	assert.Contains(t, out, "/wasm/romhost.wasm")
	assert.Contains(t, out, "lang=ru_RU")
	assert.NotContains(t, out, "apikey=")
}

func TestRender_RequiresLayer(t *testing.T) {
	r, err := New(Config{})
	require.NoError(t, err)

	var sb strings.Builder
	assert.Error(t, r.Render(&sb, nil))
	assert.Error(t, r.Render(&sb, &bootstrap.MapView{}))
	assert.Empty(t, sb.String())
}
