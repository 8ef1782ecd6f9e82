package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"exam-session-service/internal/app"
	"exam-session-service/internal/config"
	"exam-session-service/internal/domain"
	"exam-session-service/internal/infra/memory"
	"exam-session-service/internal/infra/postgres"
	redisinfra "exam-session-service/internal/infra/redis"
	"exam-session-service/internal/logger"
	"exam-session-service/internal/session"
	transport "exam-session-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam session server",
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
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.ExamLoader = memory.NewStaticExamLoader(sampleExams())
	if pool != nil {
		loader = postgres.NewExamLoader(pool)
	}

	examTTL := config.TTLDuration(cfg.Exam.TTL, 10*time.Minute)
	var exams app.ExamRepository
	if redisClient != nil {
		exams = redisinfra.NewExamRepository(redisClient, loader, examTTL)
	} else {
		exams = memory.NewExamRepository(loader, examTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	var sink app.ResultSink
	if redisClient != nil {
		sink = redisinfra.NewResultQueue(redisClient)
	} else {
		sink = memory.NewResultLog(log)
	}

	service := app.NewExamService(store, exams, sink, app.Options{
		Clocks:         session.NewTickerClockFactory(config.TTLDuration(cfg.Exam.Tick, time.Second)),
		ViolationLimit: cfg.Exam.ViolationLimit,
		Retention:      config.TTLDuration(cfg.Exam.Retention, 5*time.Minute),
		Logger:         log,
	})
	wsHandler := transport.NewWSHandler(service, cfg.Server.AllowedOrigins, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", finalPort).Msg("starting exam service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if redisClient != nil && pool != nil {
		worker := postgres.NewResultWorker(redisClient, postgres.NewResultStore(pool), redisinfra.ResultsQueue, log)
		g.Go(func() error {
			return worker.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// sampleExams is the built-in exam used when no postgres is configured.
func sampleExams() map[string]domain.Exam {
	return map[string]domain.Exam{
		"exam-1": {
			ID:              "exam-1",
			Title:           "Data Structures and Algorithms",
			DurationSeconds: 7200,
			Questions: []domain.Question{
				{
					ID:      "q1",
					Kind:    domain.KindChoice,
					Prompt:  "What is the time complexity of searching in a balanced binary search tree?",
					Options: []string{"O(1)", "O(log n)", "O(n)", "O(n log n)"},
				},
				{
					ID:      "q2",
					Kind:    domain.KindChoice,
					Prompt:  "Which data structure follows the LIFO (Last In First Out) principle?",
					Options: []string{"Queue", "Stack", "Array", "Linked List"},
				},
				{
					ID:       "q3",
					Kind:     domain.KindEssay,
					Prompt:   "Explain the difference between DFS and BFS traversal algorithms. Provide examples of when each would be preferred.",
					MaxWords: 200,
				},
				{
					ID:       "q4",
					Kind:     domain.KindCode,
					Prompt:   "Write a function to reverse a linked list. Provide both iterative and recursive solutions.",
					Language: "javascript",
				},
			},
		},
	}
}
