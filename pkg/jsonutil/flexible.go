// Package jsonutil decodes loosely typed JSON, mainly model output where a
// string field may come back as a number, a boolean or null.
package jsonutil

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexibleStringValue renders a raw JSON scalar as text.
// Strings are unquoted, whole numbers keep integer form, null and empty input
// yield "". Objects and arrays are returned as raw JSON.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := n.Float64(); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return n.String()
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}

	return string(raw)
}

// FlexibleFloatValue reads a number that may be encoded as a JSON string
// ("0.8") or a percentage ("80%"). ok is false when no number can be read.
func FlexibleFloatValue(raw json.RawMessage) (float64, bool) {
	text := strings.TrimSpace(FlexibleStringValue(raw))
	if text == "" {
		return 0, false
	}
	percent := strings.HasSuffix(text, "%")
	text = strings.TrimSuffix(text, "%")
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	if percent {
		f /= 100
	}
	return f, true
}
