package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// object is a decoded JSON object that remembers key order.
type object struct {
	keys []string
	vals map[string]any
}

// decodeOrdered decodes one JSON document. Objects become *object, numbers
// float64 (or their literal text when out of range).
func decodeOrdered(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := readValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON document")
	}
	return v, nil
}

func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &object{vals: make(map[string]any)}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := kt.(string)
				v, err := readValue(dec)
				if err != nil {
					return nil, err
				}
				if _, seen := obj.vals[key]; !seen {
					obj.keys = append(obj.keys, key)
				}
				obj.vals[key] = v
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := readValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		if f, err := strconv.ParseFloat(t.String(), 64); err == nil {
			return f, nil
		}
		return t.String(), nil
	default:
		return t, nil
	}
}

// recordsAt returns the list of objects found at the dotted path inside doc.
// A single object is treated as a one-element list.
func recordsAt(doc any, path string) ([]*object, error) {
	if path != "" {
		for _, part := range strings.Split(path, ".") {
			obj, ok := doc.(*object)
			if !ok {
				return nil, fmt.Errorf("record path %q: %q is not inside an object", path, part)
			}
			next, ok := obj.vals[part]
			if !ok {
				return nil, fmt.Errorf("record path %q: key %q not found", path, part)
			}
			doc = next
		}
	}

	switch v := doc.(type) {
	case *object:
		return []*object{v}, nil
	case []any:
		out := make([]*object, 0, len(v))
		for i, item := range v {
			obj, ok := item.(*object)
			if !ok {
				return nil, fmt.Errorf("element %d is not an object", i)
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an object or an array of objects")
	}
}

// tableFromObjects flattens nested objects into dotted column names. Columns
// appear in order of first occurrence; absent keys are missing.
func tableFromObjects(objs []*object) (*core.Table, error) {
	var order []string
	index := make(map[string]int)
	var raw [][]any

	for row, obj := range objs {
		flat := &object{vals: make(map[string]any)}
		flatten("", obj, flat)
		for _, k := range flat.keys {
			j, ok := index[k]
			if !ok {
				j = len(order)
				index[k] = j
				order = append(order, k)
				raw = append(raw, make([]any, row))
			}
			if len(raw[j]) > row {
				raw[j][row] = flat.vals[k]
				continue
			}
			raw[j] = append(raw[j], flat.vals[k])
		}
		for j := range raw {
			if len(raw[j]) < row+1 {
				raw[j] = append(raw[j], nil)
			}
		}
	}

	cols := make([]*core.Column, len(order))
	for j, name := range order {
		cols[j] = core.InferColumn(name, raw[j])
	}
	return core.NewTable(cols...)
}

func flatten(prefix string, obj *object, out *object) {
	for _, k := range obj.keys {
		name := prefix + k
		switch v := obj.vals[k].(type) {
		case *object:
			if len(v.keys) == 0 {
				out.keys = append(out.keys, name)
				out.vals[name] = nil
				continue
			}
			flatten(name+".", v, out)
		case []any:
			b, _ := json.Marshal(plain(v))
			out.keys = append(out.keys, name)
			out.vals[name] = string(b)
		case bool:
			out.keys = append(out.keys, name)
			out.vals[name] = strconv.FormatBool(v)
		default:
			out.keys = append(out.keys, name)
			out.vals[name] = v
		}
	}
}

// plain converts ordered objects back into maps for re-encoding.
func plain(v any) any {
	switch t := v.(type) {
	case *object:
		m := make(map[string]any, len(t.keys))
		for _, k := range t.keys {
			m[k] = plain(t.vals[k])
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}
