package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voyageur-express/internal/app"
	"voyageur-express/internal/config"
	"voyageur-express/internal/infra/memory"
	"voyageur-express/internal/infra/postgres"
	redisinfra "voyageur-express/internal/infra/redis"
	transport "voyageur-express/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runServer(cmd.Context(), cfg, log, *port)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config, log *zap.Logger, portFlag string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules, err := cfg.Game.Rules()
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	checks := map[string]transport.Checker{}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
		if err := seedIfMissing(ctx, cfg, log); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		checks["redis"] = transport.CheckFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		checks["postgres"] = transport.CheckFunc(pool.Ping)
	}

	var loader memory.CountryLoader = memory.NewBuiltInLoader()
	if pool != nil {
		loader = postgres.NewCountryLoader(pool)
	}

	datasetTTL := config.TTLDuration(cfg.Dataset.TTL, 10*time.Minute)
	var countryRepo app.CountryRepository
	var store app.SessionRepository
	var publisher interface {
		app.CompletionPublisher
		transport.CompletionReader
	}
	if redisClient != nil {
		countryRepo = redisinfra.NewCountryRepository(redisClient, loader, datasetTTL)
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
		publisher = redisinfra.NewCompletionStream(redisClient, cfg.Redis.Channel, 0)
	} else {
		countryRepo = memory.NewCountryRepository(loader, datasetTTL)
		store = memory.NewSessionStore()
		publisher = memory.NewCompletionLog(0)
	}

	service := app.NewGameService(store, countryRepo, publisher,
		app.WithRules(rules),
		app.WithDatasetVersion(datasetVersion(cfg)),
		app.WithServiceLogger(log),
	)

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.RouterConfig{
			Service:        service,
			Completions:    publisher,
			Checks:         checks,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting game server",
			zap.String("addr", server.Addr),
			zap.Bool("redis", redisClient != nil),
			zap.Bool("postgres", pool != nil),
			zap.String("hit_policy", string(rules.HitPolicy)),
			zap.Float64("tolerance", rules.Tolerance),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
