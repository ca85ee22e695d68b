package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// HoursPerMonth is the standard month every monthly figure is expressed in.
const HoursPerMonth = 160.0

// Rate is an optional monthly pay or billing figure. The zero value is "no rate".
type Rate struct {
	value float64
	set   bool
}

// NoRate is the absent rate.
var NoRate = Rate{}

// NewRate returns a present rate of v per month.
func NewRate(v float64) Rate {
	return Rate{value: v, set: true}
}

// Monthly returns the monthly figure and whether one is set.
func (r Rate) Monthly() (float64, bool) {
	return r.value, r.set
}

// IsSet reports whether a monthly figure is present.
func (r Rate) IsSet() bool {
	return r.set
}

// Hourly converts the monthly figure into an hourly one. An absent rate is 0.
func (r Rate) Hourly() float64 {
	return Hourly(r)
}

// Hourly is the single monthly→hourly conversion used for pay and billing alike.
func Hourly(r Rate) float64 {
	if !r.set {
		return 0
	}
	return r.value / HoursPerMonth
}

// MarshalJSON renders an absent rate as null.
func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.set {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON accepts null or a number.
func (r *Rate) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = NoRate
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = NewRate(v)
	return nil
}

// ParseRate parses a submitted monthly rate. Blank input is NoRate; anything that
// is not a finite number fails with a ValidationError.
func ParseRate(s string) (Rate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoRate, nil
	}
	v, err := parseFinite(s)
	if err != nil {
		return NoRate, &ValidationError{Field: "rate", Value: s, Reason: "must be a number"}
	}
	return NewRate(v), nil
}

// ParseHours parses a required hour quantity. Negative and non-numeric input is rejected.
func ParseHours(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "hours", Value: s, Reason: "is required"}
	}
	v, err := parseFinite(s)
	if err != nil {
		return 0, &ValidationError{Field: "hours", Value: s, Reason: "must be a number"}
	}
	if v < 0 {
		return 0, &ValidationError{Field: "hours", Value: s, Reason: "must not be negative"}
	}
	return v, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
