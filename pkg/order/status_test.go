package order

import (
	"encoding/json"
	"testing"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Status
	}{
		{"Pending", StatusPending},
		{"pending", StatusPending},
		{"PROCESSING", StatusProcessing},
		{"shipped", StatusShipped},
		{"Delivered", StatusDelivered},
		{"cancelled", StatusCancelled},
		{"returned", StatusReturned},
	}
	for _, c := range cases {
		got, err := ParseStatus(c.in)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	if _, err := ParseStatus("unknown"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestStatusJSON(t *testing.T) {
	var s Status
	if err := json.Unmarshal([]byte(`"shipped"`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s != StatusShipped {
		t.Fatalf("expected Shipped, got %q", s)
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"Shipped"` {
		t.Fatalf("expected canonical form, got %s", out)
	}

	if err := json.Unmarshal([]byte(`"bogus"`), &s); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
