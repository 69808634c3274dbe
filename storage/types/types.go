package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidCurrency = errors.New("invalid currency code")

// Currency is a 3-letter uppercase ISO 4217 currency code
type Currency string

func (c Currency) String() string {
	return string(c)
}

// ParseCurrency validates and normalizes a raw currency code
func ParseCurrency(raw string) (Currency, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, raw)
	}

	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, raw)
		}
	}

	return Currency(s), nil
}

// Source identifies where an exchange rate came from
type Source string

const SourceECB Source = "ECB"

func (s Source) String() string {
	return string(s)
}

// Pair is an ordered currency pair
type Pair struct {
	From Currency `json:"from"`
	To   Currency `json:"to"`
}

// Key returns the pair in the stored FROM_TO form
func (p Pair) Key() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// ParsePairKey parses a FROM_TO pair key
func ParsePairKey(key string) (Pair, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 2 {
		return Pair{}, fmt.Errorf("invalid pair key %q", key)
	}

	from, err := ParseCurrency(parts[0])
	if err != nil {
		return Pair{}, err
	}

	to, err := ParseCurrency(parts[1])
	if err != nil {
		return Pair{}, err
	}

	return Pair{From: from, To: to}, nil
}

// RateKey addresses a single stored rate
type RateKey struct {
	Source Source   `json:"source"`
	Pair   Pair     `json:"pair"`
	Date   RateDate `json:"date"`
}

// RateRecord is a single stored rate value.
// One record exists per RateKey, overwritten (never deleted) on refresh
type RateRecord struct {
	Rate        float64   `json:"rate" bson:"rate"`
	LastUpdated time.Time `json:"last_updated" bson:"lastUpdated"`
	Source      Source    `json:"source" bson:"source"`
}

// MatrixPairs expands a currency matrix into its ordered cross product,
// excluding self-pairs
func MatrixPairs(matrix []Currency) []Pair {
	pairs := make([]Pair, 0, len(matrix)*(len(matrix)-1))

	for _, from := range matrix {
		for _, to := range matrix {
			if from == to {
				continue
			}

			pairs = append(pairs, Pair{From: from, To: to})
		}
	}

	return pairs
}
