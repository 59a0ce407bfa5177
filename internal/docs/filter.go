package docs

import (
	"encoding/json"
	"reflect"
	"strings"
)

// normalize round-trips f through JSON so its values compare equal to
// decoded documents (ints become float64, typed slices become []any).
func normalize(f Filter) (map[string]any, error) {
	if len(f) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func matches(doc Document, filter map[string]any) bool {
	for path, want := range filter {
		got, ok := lookup(doc, path)
		if !ok {
			if want != nil {
				return false
			}
			continue
		}
		if !valueMatches(got, want) {
			return false
		}
	}
	return true
}

func lookup(doc Document, path string) (any, bool) {
	var cur any = map[string]any(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func valueMatches(got, want any) bool {
	if reflect.DeepEqual(got, want) {
		return true
	}
	if arr, ok := got.([]any); ok {
		if _, wantArr := want.([]any); !wantArr {
			for _, el := range arr {
				if reflect.DeepEqual(el, want) {
					return true
				}
			}
		}
	}
	return false
}
