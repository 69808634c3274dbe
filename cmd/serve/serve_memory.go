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
	"golang.org/x/sync/errgroup"

	cachememory "github.com/instantcurrency/rates/cache/memory"
	"github.com/instantcurrency/rates/cmd/env"
	"github.com/instantcurrency/rates/convert"
	"github.com/instantcurrency/rates/provider/frankfurter"
	"github.com/instantcurrency/rates/refresh"
	"github.com/instantcurrency/rates/resolve"
	"github.com/instantcurrency/rates/server"
	"github.com/instantcurrency/rates/storage/memory"
	"github.com/instantcurrency/rates/subscription"
)

type serveMemoryCfg struct {
	rootCfg *serveCfg
}

// newServeMemoryCmd creates the serve memory command.
func newServeMemoryCmd(rootCfg *serveCfg) *ffcli.Command {
	cfg := &serveMemoryCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("memory", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "memory",
		ShortUsage: "serve memory [flags]",
		LongHelp:   "Serves the instant currency rates backend, using in-memory state",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveMemoryCfg) exec(ctx context.Context, _ []string) error {
	// Read the server configuration, if any
	if err := c.rootCfg.loadConfig(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	// Create the in-memory tiers
	var (
		store         = memory.NewStore()
		subscriptions = memory.NewSubscriptionStore()
		rateCache     = cachememory.NewCache()
	)

	// Create the external rate provider
	rates := frankfurter.New(c.rootCfg.providerURL, time.Second*30)

	// Create the resolution pipeline
	resolver := resolve.New(rateCache, store, rates, resolve.WithLogger(logger))
	converter := convert.New(resolver, convert.WithLogger(logger))
	subService := subscription.NewService(subscriptions, rateCache, subscription.WithLogger(logger))

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

	s, err := server.New(
		resolver,
		converter,
		subService,
		rates,
		server.WithLogger(logger),
		server.WithConfig(c.rootCfg.config),
		server.WithCache(rateCache),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
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

	group.Go(func() error {
		return s.Serve(gCtx)
	})

	group.Go(func() error {
		return runScheduler(gCtx, logger, c.rootCfg.refreshSchedule, job)
	})

	return group.Wait()
}
