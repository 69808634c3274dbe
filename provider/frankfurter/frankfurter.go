// Package frankfurter adapts the Frankfurter API (ECB reference rates):
// GET /latest?from=X&to=Y,Z and GET /{date}?from=X&to=Y
package frankfurter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/instantcurrency/rates/provider"
	"github.com/instantcurrency/rates/storage/types"
)

const DefaultURL = "https://api.frankfurter.app"

var errMissingTargetRate = errors.New("target rate missing from response")

// Provider is the Frankfurter API client
type Provider struct {
	client *http.Client
	url    string
}

// New creates a new Frankfurter provider instance
func New(rawURL string, timeout time.Duration) *Provider {
	return &Provider{
		client: &http.Client{
			Timeout: timeout,
		},
		url: strings.TrimSuffix(rawURL, "/"),
	}
}

// ratesResponse is the JSON body of the /latest and /{date} endpoints
type ratesResponse struct {
	Amount float64                    `json:"amount"`
	Base   types.Currency             `json:"base"`
	Date   string                     `json:"date"`
	Rates  map[types.Currency]float64 `json:"rates"`
}

func (p *Provider) FetchOne(
	ctx context.Context,
	pair types.Pair,
	date types.RateDate,
) (*provider.Quote, error) {
	data, err := p.fetchRates(ctx, pair.From, []types.Currency{pair.To}, date)
	if err != nil {
		return nil, err
	}

	rate, ok := data.Rates[pair.To]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMissingTargetRate, pair.To)
	}

	rateDate, err := types.ParseRateDate(data.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid rate date in response: %w", err)
	}

	return &provider.Quote{
		Pair:      pair,
		Rate:      rate,
		RateDate:  rateDate,
		FetchedAt: time.Now().UTC(),
		Source:    types.SourceECB,
	}, nil
}

func (p *Provider) FetchBatch(
	ctx context.Context,
	base types.Currency,
	targets []types.Currency,
) (*provider.BatchQuote, error) {
	data, err := p.fetchRates(ctx, base, targets, types.RateDate{})
	if err != nil {
		return nil, err
	}

	rateDate, err := types.ParseRateDate(data.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid rate date in response: %w", err)
	}

	return &provider.BatchQuote{
		Base:      base,
		Rates:     data.Rates,
		RateDate:  rateDate,
		FetchedAt: time.Now().UTC(),
		Source:    types.SourceECB,
	}, nil
}

// fetchRates performs one rates request. A zero date hits /latest,
// otherwise /{date} for historical rates
func (p *Provider) fetchRates(
	ctx context.Context,
	from types.Currency,
	targets []types.Currency,
	date types.RateDate,
) (*ratesResponse, error) {
	endpoint := "latest"
	if !date.IsZero() {
		endpoint = date.String()
	}

	symbols := make([]string, 0, len(targets))
	for _, target := range targets {
		symbols = append(symbols, target.String())
	}

	query := url.Values{}
	query.Set("from", from.String())
	query.Set("to", strings.Join(symbols, ","))

	reqURL := fmt.Sprintf("%s/%s?%s", p.url, endpoint, query.Encode())

	var data ratesResponse

	if err := p.getJSON(ctx, reqURL, &data); err != nil {
		return nil, err
	}

	return &data, nil
}

func (p *Provider) Currencies(ctx context.Context) (map[types.Currency]string, error) {
	var currencies map[types.Currency]string

	if err := p.getJSON(ctx, p.url+"/currencies", &currencies); err != nil {
		return nil, err
	}

	return currencies, nil
}

// getJSON executes one GET request and decodes the JSON body
func (p *Provider) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("unable to create new GET request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unable to decode response: %w", err)
	}

	return nil
}
