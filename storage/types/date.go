package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// RateDate is the calendar date an exchange rate is quoted for.
// The provider may publish a rate date that lags the requested date
// over weekends and holidays.
//
// Dates are compared by calendar ordering, never as raw strings, and
// malformed date keys are rejected at parse time.
type RateDate struct {
	t time.Time
}

// ParseRateDate parses a strict YYYY-MM-DD calendar date
func ParseRateDate(raw string) (RateDate, error) {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return RateDate{}, fmt.Errorf("invalid rate date %q: %w", raw, err)
	}

	return RateDate{t: t}, nil
}

// DateOf truncates a timestamp to its UTC calendar date
func DateOf(t time.Time) RateDate {
	u := t.UTC()

	return RateDate{
		t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC),
	}
}

func (d RateDate) String() string {
	if d.IsZero() {
		return ""
	}

	return d.t.Format(time.DateOnly)
}

func (d RateDate) IsZero() bool {
	return d.t.IsZero()
}

func (d RateDate) Time() time.Time {
	return d.t
}

func (d RateDate) Equal(other RateDate) bool {
	return d.t.Equal(other.t)
}

func (d RateDate) Before(other RateDate) bool {
	return d.t.Before(other.t)
}

func (d RateDate) After(other RateDate) bool {
	return d.t.After(other.t)
}

func (d RateDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *RateDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw == "" {
		*d = RateDate{}

		return nil
	}

	parsed, err := ParseRateDate(raw)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}
