package export

import (
	"fmt"
	"sort"

	"github.com/voicebridge/data-connector/internal/connectors"
)

// Flatten collapses nested maps into dotted keys so records fit tabular
// formats: {"usage": {"cpu": 1}} becomes {"usage.cpu": 1}.
func Flatten(record connectors.Record) connectors.Record {
	out := make(connectors.Record, len(record))
	flattenInto(out, "", record)
	return out
}

func flattenInto(out connectors.Record, prefix string, value map[string]any) {
	for key, v := range value {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(out, full, nested)
			continue
		}
		out[full] = v
	}
}

// Columns returns the sorted union of keys across records, so every export
// of the same dataset has a stable column order.
func Columns(records []connectors.Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for key := range r {
			seen[key] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}

// cell renders one value for a tabular format.
func cell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
