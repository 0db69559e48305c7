package stylefilter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCopiesOptions(t *testing.T) {
	f := New(nil)
	obj := &Object{
		ID: 7,
		Properties: Properties{
			Options: StyleOptions{
				"preset":    String("islands#blackStretchyIcon"),
				"fillColor": String("rgba(27, 125, 27, 0.2)"),
			},
		},
	}

	require.True(t, f.Apply(obj))
	assert.Equal(t, String("islands#blackStretchyIcon"), obj.Options["preset"])
	assert.Equal(t, String("rgba(27, 125, 27, 0.2)"), obj.Options["fillColor"])
}

func TestApplyOverwritesExistingOptions(t *testing.T) {
	f := New(nil)
	obj := &Object{
		Properties: Properties{Options: StyleOptions{"zIndex": Number(10)}},
		Options:    StyleOptions{"zIndex": Number(1), "visible": Bool(true)},
	}

	require.True(t, f.Apply(obj))
	assert.Equal(t, StyleOptions{"zIndex": Number(10), "visible": Bool(true)}, obj.Options)
}

func TestApplyWithoutOptions(t *testing.T) {
	f := New(nil)

	t.Run("absent", func(t *testing.T) {
		obj := &Object{Options: StyleOptions{"visible": Bool(false)}}
		require.True(t, f.Apply(obj))
		assert.Equal(t, StyleOptions{"visible": Bool(false)}, obj.Options)
	})

	t.Run("empty", func(t *testing.T) {
		obj := &Object{Properties: Properties{Options: StyleOptions{}}}
		require.True(t, f.Apply(obj))
		assert.Nil(t, obj.Options)
	})

	t.Run("nil object", func(t *testing.T) {
		assert.True(t, f.Apply(nil))
	})
}

func TestApplyTracesIconContent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := New(logger)

	require.True(t, f.Apply(&Object{ID: "a", Properties: Properties{IconContent: "Kurskaya"}}))
	assert.Contains(t, buf.String(), "icon_content=Kurskaya")

	buf.Reset()
	require.True(t, f.Apply(&Object{ID: "b"}))
	assert.Empty(t, buf.String())
}

func TestParseProperties(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "Park Kultury",
		"hintContent": "12",
		"iconContent": "Park Kultury",
		"options": {
			"preset": "islands#blackStretchyIcon",
			"opacity": 0.5,
			"draggable": false,
			"nested": {"a": 1},
			"list": [1, 2]
		}
	}`), &raw))

	p, dropped := ParseProperties(raw)

	assert.Equal(t, "Park Kultury", p.IconContent)
	assert.Equal(t, StyleOptions{
		"preset":    String("islands#blackStretchyIcon"),
		"opacity":   Number(0.5),
		"draggable": Bool(false),
	}, p.Options)
	assert.Equal(t, []string{"list", "nested"}, dropped)
	assert.Equal(t, map[string]any{"name": "Park Kultury", "hintContent": "12"}, p.Extra)
}

func TestParsePropertiesMalformedOptions(t *testing.T) {
	p, dropped := ParseProperties(map[string]any{"options": "not a map"})
	assert.Nil(t, p.Options)
	assert.Empty(t, dropped)

	obj := &Object{Properties: p}
	assert.True(t, New(nil).Apply(obj))
	assert.Empty(t, obj.Options)
}

func TestPropertiesMapRoundTrip(t *testing.T) {
	p := Properties{
		IconContent: "3",
		Options:     StyleOptions{"preset": String("islands#redIcon"), "opacity": Number(1)},
		Extra:       map[string]any{"hintContent": "cluster"},
	}

	assert.Equal(t, map[string]any{
		"hintContent": "cluster",
		"iconContent": "3",
		"options":     map[string]any{"preset": "islands#redIcon", "opacity": 1.0},
	}, p.Map())
}

func TestValueOf(t *testing.T) {
	v, err := ValueOf(json.Number("2.5"))
	require.NoError(t, err)
	assert.Equal(t, Number(2.5), v)

	v, err = ValueOf(3)
	require.NoError(t, err)
	assert.Equal(t, Number(3), v)

	_, err = ValueOf(nil)
	assert.Error(t, err)
}
