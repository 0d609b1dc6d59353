package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnexpectedShape is returned when a list endpoint replies with neither
// an array nor a {"results": [...]} envelope.
var ErrUnexpectedShape = errors.New("unexpected list response shape")

// DecodeList normalizes a list response. The backend answers list
// endpoints either with a bare JSON array or with an envelope such as
// {"status": 200, "count": 3, "results": [...]}; both yield the same slice.
func DecodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil

	case '{':
		var envelope struct {
			Results *json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode list envelope: %w", err)
		}
		if envelope.Results == nil {
			return nil, fmt.Errorf("%w: object without results field", ErrUnexpectedShape)
		}
		return DecodeList[T](*envelope.Results)

	default:
		return nil, fmt.Errorf("%w: starts with %q", ErrUnexpectedShape, trimmed[0])
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
