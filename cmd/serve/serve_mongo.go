package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/instantcurrency/rates/cache"
	cachememory "github.com/instantcurrency/rates/cache/memory"
	"github.com/instantcurrency/rates/cache/redis"
	"github.com/instantcurrency/rates/cmd/env"
	"github.com/instantcurrency/rates/convert"
	"github.com/instantcurrency/rates/provider/frankfurter"
	"github.com/instantcurrency/rates/refresh"
	"github.com/instantcurrency/rates/resolve"
	"github.com/instantcurrency/rates/server"
	"github.com/instantcurrency/rates/storage/mongo"
	"github.com/instantcurrency/rates/subscription"
)

type serveMongoCfg struct {
	rootCfg *serveCfg

	ratesCollection         string
	subscriptionsCollection string
	propertiesCollection    string
	ratesDocumentID         string
}

// newServeMongoCmd creates the serve mongo command
func newServeMongoCmd(rootCfg *serveCfg) *ffcli.Command {
	cfg := &serveMongoCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("mongo", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "mongo",
		ShortUsage: "serve mongo [flags]",
		LongHelp:   "Serves the instant currency rates backend, using a MongoDB datastore",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveMongoCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.ratesCollection,
		"rates-collection",
		"rates",
		"the MongoDB collection holding the per-source rates documents",
	)

	fs.StringVar(
		&c.subscriptionsCollection,
		"subscriptions-collection",
		"subscriptions",
		"the MongoDB collection holding customer subscriptions",
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
}

// exec executes the serve mongo command
func (c *serveMongoCfg) exec(ctx context.Context, _ []string) error {
	// Read the server configuration, if any
	if err := c.rootCfg.loadConfig(); err != nil {
		return err
	}

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
		SubscriptionsCollection: c.subscriptionsCollection,
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

	logger.Info("DB ping success")

	// Open the cache connection. Without a configured Redis address the
	// service degrades to a per-process in-memory cache
	rateCache, err := openCache(ctx, logger)
	if err != nil {
		return err
	}

	// Create the external rate provider
	rates := frankfurter.New(c.rootCfg.providerURL, time.Second*30)

	// Create the resolution pipeline
	resolver := resolve.New(rateCache, store, rates, resolve.WithLogger(logger))
	converter := convert.New(resolver, convert.WithLogger(logger))
	subscriptions := subscription.NewService(store, rateCache, subscription.WithLogger(logger))

	// Create the daily refresh job
	matrix, err := c.rootCfg.matrix()
	if err != nil {
		return err
	}

	cutoffHour, cutoffMinute, err := c.rootCfg.cutoffTime()
	if err != nil {
		return err
	}

	gate := refresh.NewTimeGate(
		c.rootCfg.timezone,
		cutoffHour,
		cutoffMinute,
		refresh.WithGateLogger(logger),
	)

	job, err := refresh.NewJob(
		store,
		store,
		rates,
		matrix,
		refresh.WithLogger(logger),
		refresh.WithTimeGate(gate),
		refresh.WithCache(rateCache),
	)
	if err != nil {
		return fmt.Errorf("unable to create refresh job: %w", err)
	}

	// Create the server instance
	s, err := server.New(
		resolver,
		converter,
		subscriptions,
		rates,
		server.WithLogger(logger),
		server.WithConfig(c.rootCfg.config),
		server.WithCache(rateCache),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	// Preload the most recent rates
	if date, ok := resolver.WarmLatest(ctx); ok {
		logger.Info("warmed latest rates", "date", date.String())
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelFn()

	group, gCtx := errgroup.WithContext(runCtx)

	// Start the HTTP server
	group.Go(func() error {
		return s.Serve(gCtx)
	})

	// Start the refresh scheduler
	group.Go(func() error {
		return runScheduler(gCtx, logger, c.rootCfg.refreshSchedule, job)
	})

	return group.Wait()
}

// openCache connects to Redis when an address is configured, falling back
// to an in-memory cache otherwise
func openCache(ctx context.Context, logger *slog.Logger) (cache.Cache, error) {
	addr := os.Getenv(env.Prefix + env.RedisAddrSuffix)
	if addr == "" {
		logger.Warn("no Redis address configured, using in-memory cache")

		return cachememory.NewCache(), nil
	}

	connectCtx, cancelFn := context.WithTimeout(ctx, time.Second*5)
	defer cancelFn()

	c, err := redis.Connect(connectCtx, redis.Config{
		Addr:     addr,
		Password: os.Getenv(env.Prefix + env.RedisPasswordSuffix),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to connect to Redis: %w", err)
	}

	logger.Info("cache ping success")

	return c, nil
}

// runScheduler drives cron-triggered refresh runs until the context ends
func runScheduler(ctx context.Context, logger *slog.Logger, schedule string, job *refresh.Job) error {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(schedule, func() {
		runCtx, cancelFn := context.WithTimeout(ctx, time.Minute*10)
		defer cancelFn()

		result, err := job.Run(runCtx)
		if err != nil {
			logger.Error("refresh run failed", "err", err)

			return
		}

		logger.Info(
			"refresh run finished",
			"status", result.Status,
			"rate_date", result.RateDate.String(),
			"added", result.PairsAdded,
			"missing", result.MissingPairs,
		)
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	scheduler.Start()

	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	return nil
}
