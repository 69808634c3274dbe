package types

import "fmt"

// FieldPath is a dotted field address inside the per-source rates document,
// used for partial-document merge updates. Paths are always built from
// validated components, never concatenated from raw input.
type FieldPath string

func (p FieldPath) String() string {
	return string(p)
}

// Child extends the path by one field
func (p FieldPath) Child(field string) FieldPath {
	return FieldPath(fmt.Sprintf("%s.%s", p, field))
}

// RatesPath addresses all pairs stored under one rate date:
// "rates.<date>"
func RatesPath(date RateDate) FieldPath {
	return FieldPath(fmt.Sprintf("rates.%s", date))
}

// PairPath addresses a single pair's record under a rate date:
// "rates.<date>.<FROM>_<TO>"
func PairPath(date RateDate, pair Pair) FieldPath {
	return RatesPath(date).Child(pair.Key())
}

// Leaf field names under a pair path
const (
	FieldRate        = "rate"
	FieldLastUpdated = "lastUpdated"
	FieldSource      = "source"
)
