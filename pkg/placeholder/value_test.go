package placeholder

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type flag string

func (f flag) String() string { return "flag:" + string(f) }

func TestToText(t *testing.T) {
	name := "MT Aurora"
	var missing *string

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "Rotterdam", "Rotterdam"},
		{"string pointer", &name, "MT Aurora"},
		{"nil pointer", missing, ""},
		{"int64", int64(9321483), "9321483"},
		{"float", 612.5, "612.5"},
		{"bool", true, "true"},
		{"time", time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), "2026-03-14"},
		{"zero time", time.Time{}, ""},
		{"string slice", []string{"Crude", "Diesel"}, "Crude, Diesel"},
		{"mixed slice", []any{"EN590", 10, nil}, "EN590, 10, "},
		{"json array", json.RawMessage(`["Jet A1", 3]`), "Jet A1, 3"},
		{"json scalar", json.RawMessage(`"Panama"`), "Panama"},
		{"bytes", []byte("raw"), "raw"},
		{"stringer", flag("PA"), "flag:PA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToText(tt.in))
		})
	}
}
