package placeholder

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/jsonutil"
)

// ListSeparator joins array-valued fields.
const ListSeparator = ", "

// DateLayout is used for date and timestamp values.
const DateLayout = "2006-01-02"

// ToText coerces a field value to the text substituted into a document.
// nil and nil pointers become "", slices are joined with ListSeparator.
func ToText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case json.RawMessage:
		return rawJSONText(val)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(DateLayout)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		if isNilPointer(val) {
			return ""
		}
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return ToText(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, ToText(rv.Index(i).Interface()))
		}
		return strings.Join(parts, ListSeparator)
	}
	return fmt.Sprint(v)
}

func rawJSONText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				parts = append(parts, jsonutil.FlexibleStringValue(item))
			}
			return strings.Join(parts, ListSeparator)
		}
	}
	return jsonutil.FlexibleStringValue(raw)
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
