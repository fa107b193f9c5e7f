package order

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status tracks where an order is in its lifecycle. The value is stored and
// rendered in its canonical display form; parsing is case-insensitive.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
	StatusReturned   Status = "Returned"
)

var statuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusReturned,
}

// ParseStatus maps a string to its canonical Status, ignoring case.
func ParseStatus(v string) (Status, error) {
	for _, s := range statuses {
		if strings.EqualFold(v, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status: %q", v)
}

func (s Status) String() string { return string(s) }

// MarshalJSON renders the canonical display form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts any casing and normalizes to the canonical form.
func (s *Status) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
