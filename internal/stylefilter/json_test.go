package stylefilter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResult(t *testing.T, data []byte) WireResult {
	t.Helper()
	var res WireResult
	require.NoError(t, json.Unmarshal(data, &res))
	return res
}

func TestApplyJSON(t *testing.T) {
	in := `{"id": 7,
		"properties": {"iconContent": "7", "options": {"preset": "islands#redIcon", "zIndex": 3, "bad": [1]}},
		"options": {"visible": true, "preset": "islands#blueIcon"}}`

	res := decodeResult(t, New(nil).ApplyJSON([]byte(in)))

	assert.True(t, res.Keep)
	assert.Empty(t, res.Error)
	assert.Equal(t, "islands#redIcon", res.Options["preset"])
	assert.EqualValues(t, 3, res.Options["zIndex"])
	assert.Equal(t, true, res.Options["visible"])
	assert.Equal(t, []string{"bad"}, res.Dropped)
}

func TestApplyJSON_NoOptions(t *testing.T) {
	res := decodeResult(t, New(nil).ApplyJSON([]byte(`{"id": "a", "properties": {}}`)))

	assert.True(t, res.Keep)
	assert.Empty(t, res.Options)
}

func TestApplyJSON_Invalid(t *testing.T) {
	res := decodeResult(t, New(nil).ApplyJSON([]byte(`{not json`)))

	assert.True(t, res.Keep)
	assert.Contains(t, res.Error, "invalid object")
}
