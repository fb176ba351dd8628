package dbtypes

import (
	"encoding/json"
	"strings"
)

// Snapshot is one request or response entry in an audit log column.
type Snapshot map[string]any

// ParseStoredPayload decodes an audit log column into a flat list of
// snapshots. Null or unreadable input yields an empty list, a single object
// is wrapped, nested arrays are flattened and null entries dropped. Scalars
// are kept as {"value": v}. The result re-encodes to a value that parses back
// to the same list.
func ParseStoredPayload(raw *string) []Snapshot {
	out := []Snapshot{}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return out
	}

	var decoded any
	if err := json.Unmarshal([]byte(*raw), &decoded); err != nil {
		return out
	}
	return flatten(out, decoded)
}

func flatten(out []Snapshot, v any) []Snapshot {
	switch t := v.(type) {
	case nil:
		return out
	case map[string]any:
		return append(out, Snapshot(t))
	case []any:
		for _, item := range t {
			out = flatten(out, item)
		}
		return out
	default:
		return append(out, Snapshot{"value": t})
	}
}

// AppendPayload returns the column value with entries appended to the
// existing log.
func AppendPayload(raw *string, entries ...Snapshot) (*string, error) {
	list := ParseStoredPayload(raw)
	for _, e := range entries {
		if e == nil {
			continue
		}
		list = append(list, e)
	}
	return EncodePayload(list)
}

// EncodePayload serializes snapshots as a JSON array.
func EncodePayload(list []Snapshot) (*string, error) {
	if list == nil {
		list = []Snapshot{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
