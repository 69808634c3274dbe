package convert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachememory "github.com/instantcurrency/rates/cache/memory"
	"github.com/instantcurrency/rates/provider"
	"github.com/instantcurrency/rates/resolve"
	"github.com/instantcurrency/rates/storage/memory"
	"github.com/instantcurrency/rates/storage/types"
)

// unusedProvider fails the test if any tier falls through to it
type unusedProvider struct {
	t *testing.T
}

func (p *unusedProvider) FetchOne(context.Context, types.Pair, types.RateDate) (*provider.Quote, error) {
	p.t.Fatal("unexpected provider fetch")

	return nil, nil
}

func (p *unusedProvider) FetchBatch(context.Context, types.Currency, []types.Currency) (*provider.BatchQuote, error) {
	p.t.Fatal("unexpected provider fetch")

	return nil, nil
}

func (p *unusedProvider) Currencies(context.Context) (map[types.Currency]string, error) {
	p.t.Fatal("unexpected provider fetch")

	return nil, nil
}

// mockFailingProvider misses on every fetch
type mockFailingProvider struct{}

func (p *mockFailingProvider) FetchOne(context.Context, types.Pair, types.RateDate) (*provider.Quote, error) {
	return nil, context.DeadlineExceeded
}

func (p *mockFailingProvider) FetchBatch(context.Context, types.Currency, []types.Currency) (*provider.BatchQuote, error) {
	return nil, context.DeadlineExceeded
}

func (p *mockFailingProvider) Currencies(context.Context) (map[types.Currency]string, error) {
	return nil, context.DeadlineExceeded
}

func mustDate(t *testing.T, value string) types.RateDate {
	t.Helper()

	date, err := types.ParseRateDate(value)
	require.NoError(t, err)

	return date
}

// seededConverter backs the converter with a store holding one USD -> EUR
// rate for 2025-01-02
func seededConverter(t *testing.T, rate float64) *Converter {
	t.Helper()

	store := memory.NewStore()
	key := types.RateKey{
		Source: types.SourceECB,
		Pair:   types.Pair{From: "USD", To: "EUR"},
		Date:   mustDate(t, "2025-01-02"),
	}

	record := types.RateRecord{
		Rate:        rate,
		LastUpdated: time.Date(2025, 1, 2, 17, 0, 0, 0, time.UTC),
		Source:      types.SourceECB,
	}
	require.NoError(t, store.UpsertRate(context.Background(), key, record))

	clock := func() time.Time {
		return time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC)
	}

	resolver := resolve.New(
		cachememory.NewCache(),
		store,
		&unusedProvider{t: t},
		resolve.WithNowFunc(clock),
	)

	return New(resolver, WithNowFunc(clock))
}

func TestConvertHardcode(t *testing.T) {
	t.Parallel()

	converter := seededConverter(t, 2)

	result, err := converter.Convert(context.Background(), Request{
		From:     "USD",
		To:       "EUR",
		Strategy: StrategyHardcode,
		Date:     mustDate(t, "2025-01-02"),
		Cells: [][]any{
			{10.0, "note"},
			{2.5, true},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, [][]any{
		{20.0, "note"},
		{5.0, true},
	}, result.Cells)
	assert.Equal(t, "2025-01-02", result.DateUsed.String())
	assert.False(t, result.Substituted)
	assert.Equal(t, `"€"#,##0.00`, result.NumberFormat)
}

func TestConvertHardcodeDecimalPrecision(t *testing.T) {
	t.Parallel()

	converter := seededConverter(t, 1.1)

	result, err := converter.Convert(context.Background(), Request{
		From:     "USD",
		To:       "EUR",
		Strategy: StrategyHardcode,
		Date:     mustDate(t, "2025-01-02"),
		Cells:    [][]any{{19.99}},
	})
	require.NoError(t, err)

	// Plain float64 multiplication yields 21.989000000000004 here
	assert.Equal(t, [][]any{{21.989}}, result.Cells)
}

func TestConvertHardcodeRateUnavailable(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()

	failing := &mockFailingProvider{}
	resolver := resolve.New(cachememory.NewCache(), store, failing)
	converter := New(resolver)

	_, err := converter.Convert(context.Background(), Request{
		From:     "USD",
		To:       "EUR",
		Strategy: StrategyHardcode,
		Date:     mustDate(t, "2025-01-02"),
		Cells:    [][]any{{1.0}},
	})
	assert.ErrorIs(t, err, resolve.ErrRateUnavailable)
}

func TestConvertFormula(t *testing.T) {
	t.Parallel()

	converter := seededConverter(t, 2)

	result, err := converter.Convert(context.Background(), Request{
		From:     "USD",
		To:       "EUR",
		Strategy: StrategyFormula,
		Date:     mustDate(t, "2025-01-02"),
		Cells: [][]any{
			{12.5, " 3 ", "note"},
			{0.0, "", nil},
		},
	})
	require.NoError(t, err)

	wantFormula := func(amount string) string {
		return `=IFERROR(` + amount +
			`*INDEX(GOOGLEFINANCE("CURRENCY:USDEUR", "price", "2025-01-02"),2,2),` +
			` "Rate unavailable. Use undo to revert.")`
	}

	assert.Equal(t, [][]any{
		{wantFormula("12.5"), wantFormula("3"), "note"},
		{0.0, "", nil},
	}, result.Cells)
	assert.False(t, result.Substituted)
}

func TestConvertFormulaSubstitutesFutureDate(t *testing.T) {
	t.Parallel()

	converter := seededConverter(t, 2)

	result, err := converter.Convert(context.Background(), Request{
		From:            "USD",
		To:              "EUR",
		Strategy:        StrategyFormula,
		Date:            mustDate(t, "2025-06-01"),
		LatestAvailable: mustDate(t, "2025-01-02"),
		Cells:           [][]any{{1.0}},
	})
	require.NoError(t, err)

	assert.True(t, result.Substituted)
	assert.Equal(t, "2025-01-02", result.DateUsed.String())
	assert.Contains(t, result.Cells[0][0], `"price", "2025-01-02"`)
}

func TestConvertUnknownStrategy(t *testing.T) {
	t.Parallel()

	converter := seededConverter(t, 2)

	_, err := converter.Convert(context.Background(), Request{
		From:     "USD",
		To:       "EUR",
		Strategy: "approximate",
	})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNumberFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"$"#,##0.00`, NumberFormat("USD"))
	assert.Equal(t, `"¥"#,##0`, NumberFormat("JPY"))
	assert.Equal(t, DefaultNumberFormat, NumberFormat("XXX"))
}
