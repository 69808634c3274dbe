// Package refresh implements the one-shot refresh subcommand, used for
// manual backfills and as an external-scheduler entry point
package refresh

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/instantcurrency/rates/cmd/env"
	"github.com/instantcurrency/rates/provider/frankfurter"
	"github.com/instantcurrency/rates/refresh"
	"github.com/instantcurrency/rates/storage/mongo"
	"github.com/instantcurrency/rates/storage/types"
)

type refreshCfg struct {
	providerURL string
	currencies  string
	timezone    string
	cutoff      string

	ratesCollection      string
	propertiesCollection string
	ratesDocumentID      string

	force bool
}

// NewRefreshCmd creates the refresh subcommand
func NewRefreshCmd() *ffcli.Command {
	cfg := &refreshCfg{}

	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "refresh",
		ShortUsage: "refresh [flags]",
		LongHelp:   "Runs a single rate refresh pass against the MongoDB datastore",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *refreshCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.providerURL,
		"provider-url",
		frankfurter.DefaultURL,
		"the base URL of the external rate provider",
	)

	fs.StringVar(
		&c.currencies,
		"currencies",
		"USD,EUR,GBP,JPY,CHF,CAD,AUD",
		"the comma-separated currency matrix kept refreshed",
	)

	fs.StringVar(
		&c.timezone,
		"timezone",
		"Europe/Berlin",
		"the reference timezone for the market-close cutoff",
	)

	fs.StringVar(
		&c.cutoff,
		"cutoff",
		"16:45",
		"the market-close cutoff wall time, as HH:MM",
	)

	fs.StringVar(
		&c.ratesCollection,
		"rates-collection",
		"rates",
		"the MongoDB collection holding the per-source rates documents",
	)

	fs.StringVar(
		&c.propertiesCollection,
		"properties-collection",
		"properties",
		"the MongoDB collection holding job bookkeeping properties",
	)

	fs.StringVar(
		&c.ratesDocumentID,
		"rates-document-id",
		"ECB",
		"the _id of the rates document all pair updates merge into",
	)

	fs.BoolVar(
		&c.force,
		"force",
		false,
		"run even before the market-close cutoff",
	)
}

// exec executes the refresh command
func (c *refreshCfg) exec(ctx context.Context, _ []string) error {
	// Create a new logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	// Open the document store connection
	uri := os.Getenv(env.Prefix + env.MongoURISuffix)
	if uri == "" {
		return fmt.Errorf("missing %s", env.Prefix+env.MongoURISuffix)
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, time.Second*10)
	defer cancelConnect()

	store, err := mongo.Connect(connectCtx, mongo.Config{
		URI:                     uri,
		Database:                os.Getenv(env.Prefix + env.MongoDatabaseSuffix),
		RatesCollection:         c.ratesCollection,
		SubscriptionsCollection: "subscriptions",
		PropertiesCollection:    c.propertiesCollection,
		RatesDocumentID:         c.ratesDocumentID,
	})
	if err != nil {
		return fmt.Errorf("unable to connect to MongoDB: %w", err)
	}

	defer func() {
		closeCtx, cancelClose := context.WithTimeout(context.Background(), time.Second*5)
		defer cancelClose()

		if err := store.Close(closeCtx); err != nil {
			logger.Error(
				"unable to gracefully close DB connection",
				"err", err,
			)
		}
	}()

	// Parse the currency matrix
	var matrix []types.Currency

	for _, raw := range strings.Split(c.currencies, ",") {
		currency, err := types.ParseCurrency(raw)
		if err != nil {
			return fmt.Errorf("invalid currency %q in matrix: %w", raw, err)
		}

		matrix = append(matrix, currency)
	}

	opts := []refresh.Option{
		refresh.WithLogger(logger),
	}

	// The cutoff gate is skipped for forced runs
	if !c.force {
		gate, err := c.timeGate(logger)
		if err != nil {
			return err
		}

		opts = append(opts, refresh.WithTimeGate(gate))
	}

	job, err := refresh.NewJob(
		store,
		store,
		frankfurter.New(c.providerURL, time.Second*30),
		matrix,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("unable to create refresh job: %w", err)
	}

	result, err := job.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info(
		"refresh run finished",
		"status", result.Status,
		"rate_date", result.RateDate.String(),
		"added", result.PairsAdded,
		"missing", result.MissingPairs,
	)

	return nil
}

func (c *refreshCfg) timeGate(logger *slog.Logger) (*refresh.TimeGate, error) {
	parts := strings.Split(c.cutoff, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cutoff %q, expected HH:MM", c.cutoff)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid cutoff hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid cutoff minute %q", parts[1])
	}

	return refresh.NewTimeGate(c.timezone, hour, minute, refresh.WithGateLogger(logger)), nil
}
