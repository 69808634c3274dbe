// Package convert turns a grid of spreadsheet cell values from one currency
// into another, either by baking in a resolved rate or by emitting live
// lookup formulas. Non-numeric cells pass through untouched
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/instantcurrency/rates/resolve"
	"github.com/instantcurrency/rates/storage/types"
)

// Strategy selects how converted cells are produced
type Strategy string

const (
	// StrategyHardcode replaces numeric cells with the multiplied value
	StrategyHardcode Strategy = "hardcode"

	// StrategyFormula replaces numeric cells with a spreadsheet formula that
	// looks the rate up live, so the sheet keeps tracking the market
	StrategyFormula Strategy = "formula"
)

// ErrUnknownStrategy is returned for a strategy outside the known set
var ErrUnknownStrategy = errors.New("unknown conversion strategy")

// Request describes one grid conversion
type Request struct {
	From types.Currency
	To   types.Currency

	Strategy Strategy

	// Date is the requested rate date; the zero value means "latest"
	Date types.RateDate

	// LatestAvailable is the newest fully refreshed rate date known to the
	// caller, substituted for future or absent requested dates
	LatestAvailable types.RateDate

	Cells [][]any
}

// Result carries the converted grid along with the date that was actually
// used and the display format for the target currency
type Result struct {
	Cells       [][]any
	DateUsed    types.RateDate
	Substituted bool

	// NumberFormat is a spreadsheet number format pattern for the target
	// currency, e.g. `"$"#,##0.00`
	NumberFormat string
}

// Converter applies a conversion strategy over cell grids
type Converter struct {
	resolver *resolve.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a converter backed by the given resolver
func New(resolver *resolve.Resolver, opts ...Option) *Converter {
	c := &Converter{
		resolver: resolver,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}

	// Apply the options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Convert produces a new grid per the requested strategy. The input grid is
// never mutated
func (c *Converter) Convert(ctx context.Context, req Request) (*Result, error) {
	switch req.Strategy {
	case StrategyHardcode:
		return c.hardcode(ctx, req)
	case StrategyFormula:
		return c.formula(req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, req.Strategy)
	}
}

// hardcode resolves the rate once and multiplies every numeric cell by it
func (c *Converter) hardcode(ctx context.Context, req Request) (*Result, error) {
	pair := types.Pair{From: req.From, To: req.To}

	resolution, err := c.resolver.Resolve(ctx, pair, req.Date, req.LatestAvailable)
	if err != nil {
		return nil, err
	}

	rate := decimal.NewFromFloat(resolution.Rate)

	cells := mapCells(req.Cells, func(cell any) any {
		value, ok := numericCell(cell)
		if !ok {
			return cell
		}

		converted, _ := decimal.NewFromFloat(value).Mul(rate).Float64()

		return converted
	})

	return &Result{
		Cells:        cells,
		DateUsed:     resolution.DateUsed,
		Substituted:  resolution.Substituted,
		NumberFormat: NumberFormat(req.To),
	}, nil
}

// formula emits a live lookup formula per numeric cell. No rate lookup
// happens here, only date substitution, so the grid stays valid even when
// every backend tier is down
func (c *Converter) formula(req Request) (*Result, error) {
	date := req.Date
	if date.IsZero() {
		date = req.LatestAvailable
		if date.IsZero() {
			date = types.DateOf(c.now())
		}
	}

	dateUsed, substituted := resolve.EffectiveDate(date, req.LatestAvailable, c.now())

	cells := mapCells(req.Cells, func(cell any) any {
		value, ok := formulaOperand(cell)
		if !ok || value == 0 {
			return cell
		}

		return fmt.Sprintf(
			`=IFERROR(%s*INDEX(GOOGLEFINANCE("CURRENCY:%s%s", "price", "%s"),2,2), "Rate unavailable. Use undo to revert.")`,
			strconv.FormatFloat(value, 'f', -1, 64), req.From, req.To, dateUsed,
		)
	})

	return &Result{
		Cells:        cells,
		DateUsed:     dateUsed,
		Substituted:  substituted,
		NumberFormat: NumberFormat(req.To),
	}, nil
}

func mapCells(cells [][]any, transform func(any) any) [][]any {
	out := make([][]any, len(cells))
	for i, row := range cells {
		out[i] = make([]any, len(row))
		for j, cell := range row {
			out[i][j] = transform(cell)
		}
	}

	return out
}

// numericCell accepts only genuine numbers
func numericCell(cell any) (float64, bool) {
	switch v := cell.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// formulaOperand additionally accepts numeric strings, matching how
// spreadsheets coerce text that looks like a number
func formulaOperand(cell any) (float64, bool) {
	if value, ok := numericCell(cell); ok {
		return value, true
	}

	text, ok := cell.(string)
	if !ok {
		return 0, false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}

	return value, true
}
