package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/igstream/internal/config"
	"github.com/Sternrassler/igstream/pkg/cache"
	"github.com/Sternrassler/igstream/pkg/client"
	"github.com/Sternrassler/igstream/pkg/feeds"
	"github.com/Sternrassler/igstream/pkg/logging"
	"github.com/Sternrassler/igstream/pkg/metrics"
	"github.com/Sternrassler/igstream/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Commit is set via ldflags at build time.
var Commit = "none"

// app holds the state shared by all subcommands of one invocation.
type app struct {
	configFile  string
	envFile     string
	metricsAddr string

	userAgent string
	baseURL   string
	redisAddr string
	logLevel  string
	logPretty bool
	pageSize  int

	cfg    config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "igstream",
		Short: "Stream Instagram feeds as CSV",
		Long: "igstream pages through hashtag, location and user feeds lazily, filters and ranks " +
			"the posts, and writes them as CSV to stdout or a file. Requests are spaced " +
			"through Redis when a Redis address is configured.",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./"+config.DefaultConfigFile+" when present)")
	pf.StringVar(&a.envFile, "env-file", "", "env file (default ./"+config.DefaultEnvFile+" when present)")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "serve /metrics on this address while streaming, e.g. :9090")
	pf.StringVar(&a.userAgent, "user-agent", "", "User-Agent header")
	pf.StringVar(&a.baseURL, "base-url", "", "web API base URL")
	pf.StringVar(&a.redisAddr, "redis-addr", "", "Redis host:port for request spacing")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&a.logPretty, "log-pretty", false, "human readable logs")
	pf.IntVar(&a.pageSize, "page-size", 0, "edges per page, 1 to 50")

	root.AddCommand(
		a.tagCmd(),
		a.locationCmd(),
		a.userCmd(),
		a.commentsCmd(),
		a.profileCmd(),
		a.postCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "igstream %s (%s)\n", config.Version, Commit)
		},
	}
}

// setup loads the configuration, applies flag overrides and installs the
// logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var opts []config.Option
	if a.configFile != "" {
		opts = append(opts, config.WithConfigFile(a.configFile))
	}
	if a.envFile != "" {
		opts = append(opts, config.WithEnvFile(a.envFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("user-agent") {
		cfg.API.UserAgent = a.userAgent
	}
	if flags.Changed("base-url") {
		cfg.API.BaseURL = a.baseURL
	}
	if flags.Changed("redis-addr") {
		cfg.RateLimit.RedisAddr = a.redisAddr
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-pretty") {
		cfg.Log.Pretty = a.logPretty
	}
	if flags.Changed("page-size") {
		cfg.API.PageSize = a.pageSize
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)

	a.cfg = cfg
	a.logger = logging.NewLogger("cli")
	return nil
}

// open builds the feeds facade and starts the optional metrics server. The
// returned func releases both.
func (a *app) open(ctx context.Context, progressEvery int) (*feeds.Feeds, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	clientCfg := a.cfg.ClientConfig()
	var rdb *redis.Client
	if addr := a.cfg.RateLimit.RedisAddr; addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: a.cfg.RateLimit.RedisPassword,
			DB:       a.cfg.RateLimit.RedisDB,
		})
		closers = append(closers, func() { rdb.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			a.logger.Warn().Err(err).Str("addr", addr).Msg("Redis unreachable, requests will not be spaced until it is back")
		}
		cancel()

		clientCfg.Limiter = ratelimit.NewTracker(rdb, logging.NewLogger("ratelimit"),
			ratelimit.WithInterval(a.cfg.RateLimit.Interval))
	}

	api, err := client.New(clientCfg)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("create client: %w", err)
	}

	if a.metricsAddr != "" {
		srv, err := metrics.Listen(a.metricsAddr)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		})
	}

	var fetcher feeds.Fetcher = api
	if rdb != nil && a.cfg.Cache.TTL > 0 {
		fetcher = cache.NewFetcher(api, cache.NewManager(rdb, a.cfg.Cache.TTL))
	}

	f := feeds.New(fetcher,
		feeds.WithPageSize(a.cfg.API.PageSize),
		feeds.WithProgressEvery(progressEvery),
	)
	return f, closeAll, nil
}
