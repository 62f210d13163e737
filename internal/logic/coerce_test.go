package logic

import (
	"encoding/json"
	"math"
	"testing"
)

func TestToString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{true, "true"},
		{float64(2.5), "2.5"},
		{float64(3), "3"},
		{42, "42"},
		{json.Number("7"), "7"},
		{[]any{"a", float64(1)}, "a,1"},
		{[]string{"x", "y"}, "x,y"},
		{map[string]any{"k": "v"}, "[object Object]"},
	}

	for _, tt := range tests {
		if got := ToString(tt.in); got != tt.want {
			t.Errorf("ToString(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{"", 0},
		{" 12.5 ", 12.5},
		{true, 1},
		{false, 0},
		{7, 7},
		{json.Number("1.5"), 1.5},
	}

	for _, tt := range tests {
		if got := ToNumber(tt.in); got != tt.want {
			t.Errorf("ToNumber(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, in := range []any{nil, "abc", []any{1}} {
		if got := ToNumber(in); !math.IsNaN(got) {
			t.Errorf("ToNumber(%#v) = %v, want NaN", in, got)
		}
	}
}

func TestIsFalsy(t *testing.T) {
	for _, v := range []any{nil, "", false, 0, float64(0), math.NaN()} {
		if !isFalsy(v) {
			t.Errorf("isFalsy(%#v) = false", v)
		}
	}
	for _, v := range []any{"0", "a", true, 1, -1.5, []any{}} {
		if isFalsy(v) {
			t.Errorf("isFalsy(%#v) = true", v)
		}
	}
}
