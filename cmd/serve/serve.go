package serve

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/instantcurrency/rates/cmd/env"
	"github.com/instantcurrency/rates/provider/frankfurter"
	"github.com/instantcurrency/rates/server/config"
	"github.com/instantcurrency/rates/storage/types"
)

const (
	defaultCurrencies      = "USD,EUR,GBP,JPY,CHF,CAD,AUD"
	defaultRefreshSchedule = "@every 40m"
	defaultTimezone        = "Europe/Berlin"
	defaultCutoff          = "16:45"
)

// serveCfg wraps the serve configuration
type serveCfg struct {
	config *config.Config

	configPath string

	providerURL     string
	currencies      string
	refreshSchedule string
	timezone        string
	cutoff          string
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		config: config.DefaultConfig(),
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve <subcommand> [flags]",
		LongHelp:   "Serves the instant currency rates backend",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newServeMongoCmd(cfg),
		newServeMemoryCmd(cfg),
	}

	return cmd
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.config.ListenAddress,
		"listen",
		config.DefaultListenAddress,
		"the IP:PORT URL for the server",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any",
	)

	fs.StringVar(
		&c.providerURL,
		"provider-url",
		frankfurter.DefaultURL,
		"the base URL of the external rate provider",
	)

	fs.StringVar(
		&c.currencies,
		"currencies",
		defaultCurrencies,
		"the comma-separated currency matrix kept refreshed",
	)

	fs.StringVar(
		&c.refreshSchedule,
		"refresh-schedule",
		defaultRefreshSchedule,
		"the cron schedule for refresh runs",
	)

	fs.StringVar(
		&c.timezone,
		"timezone",
		defaultTimezone,
		"the reference timezone for the market-close cutoff",
	)

	fs.StringVar(
		&c.cutoff,
		"cutoff",
		defaultCutoff,
		"the market-close cutoff wall time, as HH:MM",
	)
}

// loadConfig overrides the server config from the TOML file, if one is set
func (c *serveCfg) loadConfig() error {
	if c.configPath == "" {
		return nil
	}

	serverCfg, err := config.Read(c.configPath)
	if err != nil {
		return fmt.Errorf("unable to read server config, %w", err)
	}

	c.config = serverCfg

	return nil
}

// matrix parses the configured currency list
func (c *serveCfg) matrix() ([]types.Currency, error) {
	var matrix []types.Currency

	for _, raw := range strings.Split(c.currencies, ",") {
		currency, err := types.ParseCurrency(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid currency %q in matrix: %w", raw, err)
		}

		matrix = append(matrix, currency)
	}

	return matrix, nil
}

// cutoffTime parses the configured HH:MM cutoff
func (c *serveCfg) cutoffTime() (int, int, error) {
	parts := strings.Split(c.cutoff, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid cutoff %q, expected HH:MM", c.cutoff)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid cutoff hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid cutoff minute %q", parts[1])
	}

	return hour, minute, nil
}
