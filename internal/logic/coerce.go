package logic

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// maxLoopParse — потолок при разборе целых чисел, дальше всё равно clamp.
const maxLoopParse = 1 << 20

// ToString приводит значение поля к строке.
// Списки склеиваются через запятую, nil даёт пустую строку.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = ToString(item)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(x, ",")
	case map[string]any:
		return "[object Object]"
	}
	if f, ok := numeric(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ToNumber приводит значение к числу.
// Пустая строка — 0, неразбираемое значение — NaN.
func ToNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	}
	if f, ok := numeric(v); ok {
		return f
	}
	return math.NaN()
}

// ToInt разбирает целое число из начала строкового представления значения:
// "3" → 3, "3.9" → 3, " 12abc" → 12, "abc" → 0.
func ToInt(v any) int {
	s := strings.TrimSpace(ToString(v))
	if s == "" {
		return 0
	}

	sign := 1
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}

	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		if n > maxLoopParse {
			n = maxLoopParse
		}
	}
	return sign * n
}

// IsEmpty — nil или пустая строка.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// isFalsy повторяет приведение к bool для значений формы:
// nil, "", false, 0 и NaN ложны.
func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	}
	if f, ok := numeric(v); ok {
		return f == 0 || math.IsNaN(f)
	}
	return false
}

// strictEqual — равенство одного вида и значения.
// Составные значения (списки, объекты) никогда не равны.
func strictEqual(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	an, aok := numeric(a)
	bn, bok := numeric(b)
	return aok && bok && an == bn
}

// numeric возвращает значение числовых типов Go как float64.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
