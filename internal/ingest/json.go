package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

func readJSON(content []byte) ([]record, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var objects []map[string]any
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("parse JSON catalog: %w", err)
	}
	return fromObjects(objects)
}

func readJSONLines(content []byte) ([]record, error) {
	var objects []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("parse JSON Lines catalog line %d: %w", line, err)
		}
		objects = append(objects, obj)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read JSON Lines catalog: %w", err)
	}
	return fromObjects(objects)
}

// fromObjects converts decoded objects to records with keys in sorted order.
func fromObjects(objects []map[string]any) ([]record, error) {
	titled := false
	records := make([]record, 0, len(objects))
	for _, obj := range objects {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if !titled && hasTitle(keys) {
			titled = true
		}
		rec := make(record, 0, len(keys))
		for _, k := range keys {
			rec = append(rec, field{column: k, value: stringValue(obj[k])})
		}
		records = append(records, rec)
	}
	if !titled {
		return nil, ErrMissingTitle
	}
	return records, nil
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := stringValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]any, len(keys))
		for i, k := range keys {
			parts[i] = x[k]
		}
		return stringValue(parts)
	default:
		return fmt.Sprint(x)
	}
}
