package stylefilter

import (
	"encoding/json"
	"fmt"
)

// WireObject is the JSON form of an object exchanged with the browser.
type WireObject struct {
	ID         any            `json:"id"`
	Properties map[string]any `json:"properties"`
	Options    map[string]any `json:"options"`
}

// WireResult is the JSON answer of ApplyJSON.
type WireResult struct {
	Keep    bool           `json:"keep"`
	Options map[string]any `json:"options,omitempty"`
	Dropped []string       `json:"dropped,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ApplyJSON runs f over a JSON encoded WireObject and returns the encoded
// WireResult. Decoding errors are reported in the result, never returned
// as Go errors, so browser callers always get a JSON answer.
func (f *Filter) ApplyJSON(data []byte) []byte {
	res := f.applyWire(data)
	out, err := json.Marshal(res)
	if err != nil {
		out, _ = json.Marshal(WireResult{Keep: true, Error: err.Error()})
	}
	return out
}

func (f *Filter) applyWire(data []byte) WireResult {
	var in WireObject
	if err := json.Unmarshal(data, &in); err != nil {
		return WireResult{Keep: true, Error: fmt.Sprintf("invalid object: %v", err)}
	}

	props, dropped := ParseProperties(in.Properties)
	current, more := ParseStyleOptions(in.Options)
	dropped = append(dropped, more...)

	obj := &Object{ID: in.ID, Properties: props, Options: current}
	keep := f.Apply(obj)
	return WireResult{Keep: keep, Options: obj.Options.Map(), Dropped: dropped}
}
