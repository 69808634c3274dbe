package refresh

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/instantcurrency/rates/cache"
	"github.com/instantcurrency/rates/storage/types"
)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Option configures the refresh job
type Option func(*Job)

// WithLogger sets the logger for the job
func WithLogger(logger *slog.Logger) Option {
	return func(j *Job) {
		j.logger = logger
	}
}

// WithTimeGate makes the job a no-op until the gate reports the cutoff has
// passed
func WithTimeGate(gate *TimeGate) Option {
	return func(j *Job) {
		j.gate = gate
	}
}

// WithCache enables best-effort cache warming of freshly persisted rates
func WithCache(c cache.Cache) Option {
	return func(j *Job) {
		j.cache = c
	}
}

// WithSource sets the rate source recorded on persisted rates
func WithSource(source types.Source) Option {
	return func(j *Job) {
		j.source = source
	}
}

// WithBudget caps how long a single run keeps starting new batches
func WithBudget(budget time.Duration) Option {
	return func(j *Job) {
		j.budget = budget
	}
}

// WithNowFunc overrides the clock, used in tests
func WithNowFunc(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

// GateOption configures a TimeGate
type GateOption func(*TimeGate)

// WithGateLogger sets the logger for the gate
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *TimeGate) {
		g.logger = logger
	}
}

// WithGateURLs overrides the primary and fallback time service base URLs
func WithGateURLs(primary, fallback string) GateOption {
	return func(g *TimeGate) {
		g.primaryURL = primary
		g.fallbackURL = fallback
	}
}

// WithGateClient sets the HTTP client used for time service requests
func WithGateClient(client *http.Client) GateOption {
	return func(g *TimeGate) {
		g.client = client
	}
}
