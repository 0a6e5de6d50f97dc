package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/config"
	"quizwhiz-service/internal/infra/memory"
	"quizwhiz-service/internal/opentdb"
	"quizwhiz-service/internal/questionbank"
	"quizwhiz-service/internal/timer"

	infrapg "quizwhiz-service/internal/infra/postgres"
	infraredis "quizwhiz-service/internal/infra/redis"
	transport "quizwhiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service, cleanup, err := buildGameService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizwhiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildGameService wires the question pipeline and result store from config:
// Postgres-backed results when a URL is configured (memory otherwise), and a
// Redis question cache when an address is configured (in-process otherwise).
func buildGameService(ctx context.Context, cfg config.Config) (*app.GameService, func(), error) {
	cleanup := func() {}

	source := questionbank.Source(opentdb.NewClient(cfg.Trivia.URL, cfg.Trivia.Difficulty, nil))
	cacheTTL := config.TTLDuration(cfg.Trivia.CacheTTL, 10*time.Minute)

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		source = infraredis.NewQuestionCache(redisClient, source, cacheTTL)
		prev := cleanup
		cleanup = func() { _ = redisClient.Close(); prev() }
	} else {
		source = memory.NewQuestionCache(source, cacheTTL)
	}

	var results app.ResultStore = memory.NewResultStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		results = infrapg.NewResultStore(pool)
		prev := cleanup
		cleanup = func() { pool.Close(); prev() }
	}

	service := app.NewGameService(
		questionbank.NewAdapter(source),
		results,
		timer.SystemClock(),
		cfg.Quiz.Questions,
		cfg.Quiz.SecondsPerQuestion,
	)
	return service, cleanup, nil
}
