package repo

import (
	"testing"

	"github.com/google/uuid"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name          string
		limit, offset int
		want          []int
	}{
		{"no limit", 0, 0, []int{1, 2, 3, 4, 5}},
		{"limit", 2, 0, []int{1, 2}},
		{"offset", 0, 3, []int{4, 5}},
		{"limit and offset", 2, 1, []int{2, 3}},
		{"offset past end", 2, 9, []int{}},
		{"negative offset", 1, -1, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(items, tt.limit, tt.offset)
			if len(got) != len(tt.want) {
				t.Fatalf("Paginate() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Paginate() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestNullHelpers(t *testing.T) {
	if nullString("") != nil {
		t.Error("nullString(\"\") should be nil")
	}
	if s := nullString("x"); s == nil || *s != "x" {
		t.Errorf("nullString(x) = %v", s)
	}

	nilID := uuid.Nil
	if nullUUID(&nilID) != nil || nullUUID(nil) != nil {
		t.Error("nil UUID should map to NULL")
	}
	id := uuid.New()
	if got := nullUUID(&id); got == nil || *got != id {
		t.Errorf("nullUUID() = %v", got)
	}

	b, err := nullJSON(map[string]string{})
	if err != nil || b != nil {
		t.Errorf("nullJSON(empty) = %s, %v", b, err)
	}
	b, err = nullJSON(map[string]any{"a": 1})
	if err != nil || string(b) != `{"a":1}` {
		t.Errorf("nullJSON() = %s, %v", b, err)
	}
}
