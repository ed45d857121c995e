package engine

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/flosch/pongo2/v6"
	json "github.com/goccy/go-json"
)

// NormalizeContext turns render data into the variables a template sees.
// Maps keep their values; structs and other objects are encoded to JSON and
// read back so templates address fields by their json keys. Numbers keep
// their kind: Go numeric values pass through untouched and JSON numbers
// decode to int64 (uint64 past its range) when integral, float64
// otherwise.
func NormalizeContext(data any) (map[string]any, error) {
	var vars map[string]any
	switch v := data.(type) {
	case nil:
		return map[string]any{}, nil
	case pongo2.Context:
		vars = v
	case map[string]any:
		vars = v
	default:
		decoded, err := viaJSON(v)
		if err != nil {
			return nil, err
		}
		obj, ok := decoded.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("engine: context must be an object, got %T", data)
		}
		vars = obj
	}

	out := make(map[string]any, len(vars))
	for key, value := range vars {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		normalized, err := normalizeValue(value)
		if err != nil {
			return nil, fmt.Errorf("engine: context key %q: %w", key, err)
		}
		out[key] = normalized
	}
	return out, nil
}

func convertToContext(data any) (pongo2.Context, error) {
	vars, err := NormalizeContext(data)
	if err != nil {
		return nil, err
	}
	return pongo2.Context(vars), nil
}

func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case nil, string, bool, *pongo2.Value:
		return v, nil
	case json.Number:
		return numberValue(v)
	case pongo2.Context:
		return normalizeMap(v)
	case map[string]any:
		return normalizeMap(v)
	case []any:
		return normalizeSlice(v)
	}

	switch reflect.TypeOf(value).Kind() {
	case reflect.Func,
		reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return value, nil
	}

	decoded, err := viaJSON(value)
	if err != nil {
		return nil, err
	}
	return normalizeValue(decoded)
}

func normalizeMap(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for key, value := range in {
		normalized, err := normalizeValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = normalized
	}
	return out, nil
}

func normalizeSlice(in []any) ([]any, error) {
	out := make([]any, len(in))
	for i, value := range in {
		normalized, err := normalizeValue(value)
		if err != nil {
			return nil, err
		}
		out[i] = normalized
	}
	return out, nil
}

// viaJSON encodes v and decodes it into plain maps, slices and json.Number.
func viaJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("engine: encode %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("engine: decode %T: %w", v, err)
	}
	return out, nil
}

func numberValue(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
		return u, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("engine: number %q: %w", n.String(), err)
	}
	return f, nil
}
