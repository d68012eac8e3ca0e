package jsonbig

import (
	"encoding/json"
	"io"
	"math/big"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.Config{
	UseNumber:              true,
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Marshal encodes v. *big.Int and Int values are written as bare JSON numbers.
func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

// MarshalIndent is like Marshal but indents the output.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return codec.MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes data into v. When v points at an untyped value (any,
// map[string]any or []any) integer literals are converted to *big.Int.
func Unmarshal(data []byte, v any) error {
	if err := codec.Unmarshal(data, v); err != nil {
		return err
	}
	normalizeTarget(v)
	return nil
}

// Decoder reads JSON values from a stream with the same number handling as
// Unmarshal.
type Decoder struct {
	dec *jsoniter.Decoder
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: codec.NewDecoder(r)}
}

// Decode reads the next JSON value into v.
func (d *Decoder) Decode(v any) error {
	if err := d.dec.Decode(v); err != nil {
		return err
	}
	normalizeTarget(v)
	return nil
}

// Normalize walks an untyped decoded value and replaces integer json.Number
// leaves with *big.Int. Other values are returned unchanged.
func Normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = Normalize(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = Normalize(item)
		}
		return v
	}
	text, ok := jsoniter.CastJsonNumber(value)
	if !ok {
		return value
	}
	if n, isInt := parseInteger(text); isInt {
		return n
	}
	return json.Number(text)
}

func normalizeTarget(v any) {
	switch t := v.(type) {
	case *any:
		if t != nil {
			*t = Normalize(*t)
		}
	case *map[string]any:
		if t != nil && *t != nil {
			Normalize(*t)
		}
	case *[]any:
		if t != nil && *t != nil {
			Normalize(*t)
		}
	}
}

func parseInteger(text string) (*big.Int, bool) {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, ".eE") {
		return nil, false
	}
	n, ok := new(big.Int).SetString(text, 10)
	return n, ok
}
