package frankfurter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instantcurrency/rates/storage/types"
)

func TestProvider_FetchOne(t *testing.T) {
	t.Parallel()

	t.Run("latest rate", func(t *testing.T) {
		t.Parallel()

		var requestedPath, requestedQuery string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestedPath = r.URL.Path
			requestedQuery = r.URL.RawQuery

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"amount": 1.0,
				"base": "USD",
				"date": "2024-12-31",
				"rates": {"EUR": 0.9133}
			}`))
		}))
		defer srv.Close()

		p := New(srv.URL, time.Second*5)

		quote, err := p.FetchOne(
			context.Background(),
			types.Pair{From: "USD", To: "EUR"},
			types.RateDate{},
		)
		require.NoError(t, err)

		assert.Equal(t, "/latest", requestedPath)
		assert.Contains(t, requestedQuery, "from=USD")
		assert.Contains(t, requestedQuery, "to=EUR")

		assert.InDelta(t, 0.9133, quote.Rate, 0.0001)
		assert.Equal(t, "2024-12-31", quote.RateDate.String())
		assert.Equal(t, types.SourceECB, quote.Source)
		assert.False(t, quote.FetchedAt.IsZero())
	})

	t.Run("historical rate", func(t *testing.T) {
		t.Parallel()

		var requestedPath string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestedPath = r.URL.Path

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"amount": 1.0,
				"base": "USD",
				"date": "2024-06-14",
				"rates": {"EUR": 0.93}
			}`))
		}))
		defer srv.Close()

		date, err := types.ParseRateDate("2024-06-14")
		require.NoError(t, err)

		p := New(srv.URL, time.Second*5)

		quote, err := p.FetchOne(context.Background(), types.Pair{From: "USD", To: "EUR"}, date)
		require.NoError(t, err)

		assert.Equal(t, "/2024-06-14", requestedPath)
		assert.InDelta(t, 0.93, quote.Rate, 0.0001)
	})

	t.Run("missing target rate", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"amount": 1.0, "base": "USD", "date": "2024-12-31", "rates": {}}`))
		}))
		defer srv.Close()

		p := New(srv.URL, time.Second*5)

		_, err := p.FetchOne(
			context.Background(),
			types.Pair{From: "USD", To: "EUR"},
			types.RateDate{},
		)

		assert.ErrorIs(t, err, errMissingTargetRate)
	})

	t.Run("upstream error status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		p := New(srv.URL, time.Second*5)

		_, err := p.FetchOne(
			context.Background(),
			types.Pair{From: "USD", To: "EUR"},
			types.RateDate{},
		)

		assert.Error(t, err)
	})
}

func TestProvider_FetchBatch(t *testing.T) {
	t.Parallel()

	var requestedQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedQuery = r.URL.RawQuery

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"amount": 1.0,
			"base": "USD",
			"date": "2024-12-31",
			"rates": {"EUR": 0.9133, "GBP": 0.7842, "JPY": 157.2}
		}`))
	}))
	defer srv.Close()

	p := New(srv.URL, time.Second*5)

	batch, err := p.FetchBatch(
		context.Background(),
		"USD",
		[]types.Currency{"EUR", "GBP", "JPY"},
	)
	require.NoError(t, err)

	assert.Contains(t, requestedQuery, "to=EUR%2CGBP%2CJPY")

	assert.Equal(t, types.Currency("USD"), batch.Base)
	assert.Equal(t, "2024-12-31", batch.RateDate.String())
	require.Len(t, batch.Rates, 3)
	assert.InDelta(t, 157.2, batch.Rates["JPY"], 0.0001)
}

func TestProvider_Currencies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/currencies", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"EUR": "Euro", "USD": "United States Dollar"}`))
	}))
	defer srv.Close()

	p := New(srv.URL, time.Second*5)

	currencies, err := p.Currencies(context.Background())
	require.NoError(t, err)

	require.Len(t, currencies, 2)
	assert.Equal(t, "Euro", currencies["EUR"])
}
