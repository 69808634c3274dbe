package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes_ParseCurrency(t *testing.T) {
	t.Parallel()

	t.Run("valid codes", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"USD", "usd", " Eur "} {
			c, err := ParseCurrency(raw)

			require.NoError(t, err)
			assert.Len(t, c.String(), 3)
		}
	})

	t.Run("invalid codes", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"", "US", "USDX", "U$D", "12A"} {
			_, err := ParseCurrency(raw)

			assert.ErrorIs(t, err, ErrInvalidCurrency)
		}
	})
}

func TestTypes_PairKey(t *testing.T) {
	t.Parallel()

	pair := Pair{From: "USD", To: "EUR"}
	assert.Equal(t, "USD_EUR", pair.Key())

	parsed, err := ParsePairKey("USD_EUR")
	require.NoError(t, err)
	assert.Equal(t, pair, parsed)

	for _, raw := range []string{"USDEUR", "USD_EUR_GBP", "US_EUR", ""} {
		_, err := ParsePairKey(raw)

		assert.Error(t, err)
	}
}

func TestTypes_RateDate(t *testing.T) {
	t.Parallel()

	t.Run("strict parsing", func(t *testing.T) {
		t.Parallel()

		d, err := ParseRateDate("2025-01-01")
		require.NoError(t, err)
		assert.Equal(t, "2025-01-01", d.String())

		for _, raw := range []string{"2025-1-1", "01-01-2025", "2025-01-01T00:00:00Z", "not-a-date"} {
			_, err := ParseRateDate(raw)

			assert.Error(t, err)
		}
	})

	t.Run("calendar ordering", func(t *testing.T) {
		t.Parallel()

		older, err := ParseRateDate("2024-12-31")
		require.NoError(t, err)

		newer, err := ParseRateDate("2025-01-01")
		require.NoError(t, err)

		assert.True(t, older.Before(newer))
		assert.True(t, newer.After(older))
		assert.False(t, older.Equal(newer))
	})

	t.Run("date of timestamp", func(t *testing.T) {
		t.Parallel()

		ts := time.Date(2025, time.March, 5, 23, 59, 0, 0, time.UTC)
		assert.Equal(t, "2025-03-05", DateOf(ts).String())
	})

	t.Run("json round trip", func(t *testing.T) {
		t.Parallel()

		d, err := ParseRateDate("2025-06-15")
		require.NoError(t, err)

		raw, err := d.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `"2025-06-15"`, string(raw))

		var decoded RateDate

		require.NoError(t, decoded.UnmarshalJSON(raw))
		assert.True(t, d.Equal(decoded))
	})
}

func TestTypes_FieldPath(t *testing.T) {
	t.Parallel()

	date, err := ParseRateDate("2025-01-01")
	require.NoError(t, err)

	pair := Pair{From: "USD", To: "EUR"}

	assert.Equal(t, "rates.2025-01-01", RatesPath(date).String())
	assert.Equal(t, "rates.2025-01-01.USD_EUR", PairPath(date, pair).String())
	assert.Equal(
		t,
		"rates.2025-01-01.USD_EUR.rate",
		PairPath(date, pair).Child(FieldRate).String(),
	)
}

func TestTypes_MatrixPairs(t *testing.T) {
	t.Parallel()

	matrix := []Currency{"USD", "EUR", "GBP"}
	pairs := MatrixPairs(matrix)

	require.Len(t, pairs, 6) // N*(N-1)

	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		assert.NotEqual(t, p.From, p.To)

		seen[p.Key()] = struct{}{}
	}

	assert.Len(t, seen, 6)
}
