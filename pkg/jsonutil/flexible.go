// Package jsonutil decodes model-generated JSON whose scalar types drift
// (numbers where strings were asked for, a single string where a list was).
package jsonutil

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a raw JSON scalar to a string. Strings pass
// through, numbers and booleans are formatted, null and empty input give "".
// Objects and arrays are returned as their raw JSON text.
func FlexibleStringValue(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}

	return trimmed
}

// FlexibleString is a string field that also accepts JSON numbers and booleans.
type FlexibleString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	*f = FlexibleString(FlexibleStringValue(data))
	return nil
}

// String returns the plain string value.
func (f FlexibleString) String() string {
	return string(f)
}

// FlexibleStringList is a []string field that also accepts a single scalar
// (wrapped into a one-element list) or null (empty list).
type FlexibleStringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *FlexibleStringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*l = FlexibleStringList{}
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(FlexibleStringList, 0, len(items))
		for _, item := range items {
			if v := FlexibleStringValue(item); v != "" {
				out = append(out, v)
			}
		}
		*l = out
		return nil
	}

	if v := FlexibleStringValue(data); v != "" {
		*l = FlexibleStringList{v}
	} else {
		*l = FlexibleStringList{}
	}
	return nil
}
