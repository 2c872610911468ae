package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/config"
	"mathquiz-service/internal/infra/memory"
	"mathquiz-service/internal/infra/postgres"
	redisinfra "mathquiz-service/internal/infra/redis"
	transport "mathquiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			return runServer(cmd.Context(), cfg, *port)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}

	var resultStore memory.ResultStore = memory.NewResultLog(memory.RecentCap)
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg.Postgres.URL); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		resultStore = postgres.NewResultArchive(pool)
	}

	cacheTTL := config.DurationOr(cfg.Results.CacheTTL, 30*time.Second)
	var results app.ResultRepository
	var store app.SessionRepository
	var markers *redisinfra.SessionStore
	if redisClient != nil {
		results = redisinfra.NewResultRepository(redisClient, resultStore, cacheTTL)
		markers = redisinfra.NewSessionStore(redisClient, config.DurationOr(cfg.Redis.TTL, 10*time.Minute))
		store = markers
	} else {
		results = memory.NewResultRepository(resultStore, cacheTTL)
		store = memory.NewSessionStore()
	}

	logger := log.Logger
	hub := transport.NewHub(logger.With().Str("component", "hub").Logger())
	service := app.NewQuizService(store, hub,
		app.WithSettings(gameSettings(cfg)),
		app.WithResultArchive(results),
		app.WithLogger(logger.With().Str("component", "quiz").Logger()),
	)
	wsHandler := transport.NewWSHandler(service, hub, logger.With().Str("component", "ws").Logger())
	resultsHandler := transport.NewResultsHandler(results, cfg.Results.RecentLimit, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/api/results", resultsHandler)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	settings := service.Settings()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("port", finalPort).
			Int("questions", settings.QuestionCount).
			Dur("question_time", settings.QuestionTime).
			Bool("redis", redisClient != nil).
			Bool("postgres", cfg.Postgres.URL != "").
			Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	if markers != nil {
		g.Go(func() error {
			return markers.KeepAlive(gctx, logger.With().Str("component", "sessions").Logger())
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func gameSettings(cfg config.Config) app.Settings {
	d := app.DefaultSettings()
	count := cfg.Game.QuestionCount
	if count <= 0 {
		count = d.QuestionCount
	}
	return app.Settings{
		QuestionCount:  count,
		QuestionTime:   config.DurationOr(cfg.Game.QuestionTime, d.QuestionTime),
		CorrectDelay:   config.DurationOr(cfg.Game.CorrectDelay, d.CorrectDelay),
		IncorrectDelay: config.DurationOr(cfg.Game.IncorrectDelay, d.IncorrectDelay),
		FaultDelay:     config.DurationOr(cfg.Game.FaultDelay, d.FaultDelay),
	}
}
