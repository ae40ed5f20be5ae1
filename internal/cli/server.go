package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"vocab-quiz-service/internal/app"
	"vocab-quiz-service/internal/config"
	"vocab-quiz-service/internal/infra/memory"
	pgstore "vocab-quiz-service/internal/infra/postgres"
	redisstore "vocab-quiz-service/internal/infra/redis"
	"vocab-quiz-service/internal/rank"
	transport "vocab-quiz-service/internal/transport/http"
	"vocab-quiz-service/internal/vocab"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// Ledger backend is chosen once here; everything downstream sees only
	// the ScoreLedger interface.
	var ledger app.ScoreLedger
	switch {
	case pool != nil:
		ledger = pgstore.NewLedger(pool)
		log.Printf("score ledger: postgres")
	case redisClient != nil:
		ledger = redisstore.NewLedger(redisClient)
		log.Printf("score ledger: redis")
	case cfg.Local.Dir != "":
		ledger = memory.NewPersistentLedger(memory.NewFileStore(cfg.Local.Dir))
		log.Printf("score ledger: local (%s)", cfg.Local.Dir)
	default:
		ledger = memory.NewLedger()
		log.Printf("score ledger: in-memory")
	}

	// Vocabulary: CSV file when configured, Postgres table when available,
	// built-in fallback otherwise. Reload failures keep the previous pool.
	var source vocab.Source = vocab.NewStaticSource(vocab.FallbackItems())
	switch {
	case cfg.Vocab.CSVPath != "":
		source = vocab.NewCSVSource(cfg.Vocab.CSVPath)
	case pool != nil:
		source = pgstore.NewVocabSource(pool)
	}
	wordPool := vocab.NewPool()
	reloadTTL := config.TTLDuration(cfg.Vocab.ReloadTTL, 10*time.Minute)
	reloader := vocab.NewReloader(wordPool, source, reloadTTL)
	if err := reloader.Refresh(ctx); err != nil {
		log.Printf("initial vocab load failed, using fallback set: %v", err)
	}

	boards := rank.NewBoardRepository(ledger, config.TTLDuration(cfg.Ranking.CacheTTL, 30*time.Second))

	service := app.NewGameService(ledger, boards, reloader, app.SessionConfig{
		Selector: app.SelectorConfig{
			RecentWords:       cfg.Game.RecentWords,
			RecentLabels:      cfg.Game.RecentLabels,
			ReshuffleAttempts: cfg.Game.ReshuffleAttempts,
		},
		BasePoints:    cfg.Game.BasePoints,
		RoundSeconds:  cfg.Game.RoundSeconds,
		ComboBonusCap: cfg.Game.ComboBonusCap,
		Level:         cfg.Game.Level,
	})
	wsHandler := transport.NewWSHandler(service, cfg.Ranking.TopN)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting vocab quiz service on :%s", finalPort)
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
