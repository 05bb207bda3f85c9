package core

import (
	"encoding/json"
	"testing"
)

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name string
		from string
		n    int
		want string
	}{
		{"mid month", "2024-01-15", 1, "2024-02-15"},
		{"leap february", "2024-01-31", 1, "2024-02-29"},
		{"non-leap february", "2023-01-31", 1, "2023-02-28"},
		{"thirty day month", "2024-03-31", 1, "2024-04-30"},
		{"year rollover", "2024-12-10", 1, "2025-01-10"},
		{"anchor kept across months", "2024-01-31", 2, "2024-03-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustDate(tt.from).AddMonthsClamped(tt.n)
			if got.String() != tt.want {
				t.Errorf("AddMonthsClamped(%s, %d) = %s, want %s", tt.from, tt.n, got, tt.want)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 2, 5)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-02-05"` {
		t.Fatalf("unexpected json %s", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d) {
		t.Fatalf("round trip mismatch: %s vs %s", back, d)
	}

	if err := json.Unmarshal([]byte(`"2024/02/05"`), &back); err == nil {
		t.Fatalf("expected error for bad layout")
	}
}

func TestDateMonth(t *testing.T) {
	if got := MustDate("2024-03-09").Month(); got != "2024-03" {
		t.Fatalf("Month() = %s", got)
	}
	if _, err := ParseMonth("2024-13"); err == nil {
		t.Fatalf("expected invalid month")
	}
	if _, err := ParseMonth("2024-03"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
