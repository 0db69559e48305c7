package stylefilter

import (
	"encoding/json"
	"fmt"
	"sort"
)

// StyleValue is one of String, Number or Bool.
type StyleValue interface {
	styleValue()
}

// String is a textual style value such as a preset name or a color.
type String string

// Number is a numeric style value such as an opacity or a z-index.
type Number float64

// Bool is a boolean style value such as a visibility switch.
type Bool bool

func (String) styleValue() {}
func (Number) styleValue() {}
func (Bool) styleValue()   {}

// StyleOptions maps option names to style values.
type StyleOptions map[string]StyleValue

// Clone returns a shallow copy. A nil receiver yields nil.
func (o StyleOptions) Clone() StyleOptions {
	if o == nil {
		return nil
	}
	out := make(StyleOptions, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Map converts the options back to plain JSON-compatible values.
func (o StyleOptions) Map() map[string]any {
	out := make(map[string]any, len(o))
	for k, v := range o {
		out[k] = Plain(v)
	}
	return out
}

// Plain unwraps a style value to string, float64 or bool.
func Plain(v StyleValue) any {
	switch t := v.(type) {
	case String:
		return string(t)
	case Number:
		return float64(t)
	case Bool:
		return bool(t)
	default:
		return nil
	}
}

// ValueOf converts a decoded JSON value into a StyleValue. Objects, arrays
// and null are not style values.
func ValueOf(v any) (StyleValue, error) {
	switch t := v.(type) {
	case StyleValue:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(t), nil
	case int:
		return Number(t), nil
	case int64:
		return Number(t), nil
	case int32:
		return Number(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return Number(f), nil
	default:
		return nil, fmt.Errorf("unsupported style value type %T", v)
	}
}

// ParseStyleOptions validates an untyped options bag. Anything that is not
// a string-keyed map yields no options. Keys whose values are not style
// values are skipped and returned sorted in dropped.
func ParseStyleOptions(v any) (opts StyleOptions, dropped []string) {
	var bag map[string]any
	switch t := v.(type) {
	case map[string]any:
		bag = t
	case StyleOptions:
		return t.Clone(), nil
	default:
		return nil, nil
	}

	opts = make(StyleOptions, len(bag))
	for k, raw := range bag {
		sv, err := ValueOf(raw)
		if err != nil {
			dropped = append(dropped, k)
			continue
		}
		opts[k] = sv
	}
	sort.Strings(dropped)
	return opts, dropped
}
