package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// decodeJSON accepts a top-level array of products or an object wrapping one under "products" or "data".
// Numbers stay as json.Number so integer ids keep every digit.
func decodeJSON(content []byte) ([]record, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse JSON catalog: %w", err)
	}
	return recordsFrom(doc)
}

// decodeYAML accepts the same shapes as decodeJSON.
func decodeYAML(content []byte) ([]record, error) {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML catalog: %w", err)
	}
	return recordsFrom(normalizeYAML(doc))
}

func recordsFrom(doc any) ([]record, error) {
	switch t := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]record, 0, len(t))
		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("catalog entry %d is not an object", i)
			}
			out = append(out, newRecord(m))
		}
		return out, nil
	case map[string]any:
		for _, key := range []string{"products", "data"} {
			if inner, ok := t[key]; ok {
				return recordsFrom(inner)
			}
		}
		// A single product object.
		return []record{newRecord(t)}, nil
	default:
		return nil, fmt.Errorf("catalog must be a list of products, got %T", doc)
	}
}

// normalizeYAML converts yaml.v3 values into the shapes encoding/json produces,
// so display fields marshal back to JSON.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeYAML(inner)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[fmt.Sprint(k)] = normalizeYAML(inner)
		}
		return m
	case []any:
		for i, inner := range t {
			t[i] = normalizeYAML(inner)
		}
		return t
	case int:
		return json.Number(strconv.Itoa(t))
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case uint64:
		return json.Number(strconv.FormatUint(t, 10))
	default:
		return v
	}
}
