package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultPrimaryTimeURL  = "https://worldtimeapi.org/api/timezone"
	DefaultFallbackTimeURL = "https://timeapi.io/api/Time/current/zone"

	defaultGateTimeout = time.Second * 10
)

// TimeGate decides whether the day's market-close cutoff has passed in a
// reference timezone, using an external time service with a fallback.
// When neither service gives a trustworthy reading the gate fails closed
// and the enclosing scheduler's next tick is the retry
type TimeGate struct {
	client *http.Client
	logger *slog.Logger

	primaryURL  string
	fallbackURL string

	timezone string
	hour     int
	minute   int
}

// NewTimeGate creates a gate for the given cutoff wall time
func NewTimeGate(timezone string, hour, minute int, opts ...GateOption) *TimeGate {
	g := &TimeGate{
		client:      &http.Client{Timeout: defaultGateTimeout},
		logger:      noopLogger,
		primaryURL:  DefaultPrimaryTimeURL,
		fallbackURL: DefaultFallbackTimeURL,
		timezone:    timezone,
		hour:        hour,
		minute:      minute,
	}

	// Apply the options
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// IsPastCutoff reports whether the current wall time in the reference
// timezone is at or after the cutoff. No retries within a single call
func (g *TimeGate) IsPastCutoff(ctx context.Context) bool {
	hour, minute, err := g.primaryTime(ctx)
	if err != nil {
		g.logger.Warn("primary time service failed", "err", err)

		hour, minute, err = g.fallbackTime(ctx)
		if err != nil {
			g.logger.Error("no trustworthy clock reading, skipping", "err", err)

			return false
		}
	}

	return hour > g.hour || (hour == g.hour && minute >= g.minute)
}

// primaryTime queries the worldtimeapi-style service:
// GET {base}/{timezone} -> {"datetime": "2025-01-02T17:01:02.123+01:00"}
func (g *TimeGate) primaryTime(ctx context.Context) (int, int, error) {
	body, err := g.get(ctx, fmt.Sprintf("%s/%s", g.primaryURL, g.timezone))
	if err != nil {
		return 0, 0, err
	}

	var payload struct {
		Datetime string `json:"datetime"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, 0, fmt.Errorf("unable to decode time response: %w", err)
	}

	// The datetime carries the zone offset, so the parsed wall time is
	// already local to the reference timezone
	t, err := time.Parse(time.RFC3339Nano, payload.Datetime)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to parse datetime %q: %w", payload.Datetime, err)
	}

	return t.Hour(), t.Minute(), nil
}

// fallbackTime queries the timeapi.io-style service:
// GET {base}?timeZone={timezone} -> {"hour": 17, "minute": 1, ...}
func (g *TimeGate) fallbackTime(ctx context.Context) (int, int, error) {
	query := url.Values{}
	query.Set("timeZone", g.timezone)

	body, err := g.get(ctx, fmt.Sprintf("%s?%s", g.fallbackURL, query.Encode()))
	if err != nil {
		return 0, 0, err
	}

	var payload struct {
		Hour   int `json:"hour"`
		Minute int `json:"minute"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, 0, fmt.Errorf("unable to decode time response: %w", err)
	}

	return payload.Hour, payload.Minute, nil
}

func (g *TimeGate) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create new GET request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
