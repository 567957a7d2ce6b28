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

	"theory-exam-service/internal/activity"
	"theory-exam-service/internal/app"
	"theory-exam-service/internal/config"
	"theory-exam-service/internal/domain"
	"theory-exam-service/internal/infra/memory"
	pgcontent "theory-exam-service/internal/infra/postgres"
	redisinfra "theory-exam-service/internal/infra/redis"
	"theory-exam-service/internal/progress"
	transport "theory-exam-service/internal/transport/http"
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.ContentLoader = memory.NewStaticContentLoader(sampleExams(), sampleNotes())
	if pool != nil {
		loader = pgcontent.NewContentLoader(pool)
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	var content app.ContentRepository
	if redisClient != nil {
		content = redisinfra.NewContentRepository(redisClient, loader, contentTTL)
	} else {
		content = memory.NewContentRepository(loader, contentTTL)
	}

	var attempts app.AttemptRepository
	var kv progress.Store
	if redisClient != nil {
		attempts = redisinfra.NewAttemptStore(redisClient, redisTTL)
		kv = redisinfra.NewKVStore(redisClient, "exam")
	} else {
		attempts = memory.NewAttemptStore()
		kv = memory.NewKVStore()
	}

	aggregator := progress.NewAggregator(kv)
	history := progress.NewHistory(kv)
	recorder := activity.NewRecorder(kv)

	service := app.NewExamService(content, attempts, history, aggregator, recorder, timerSettings(cfg)).
		WithPassThreshold(cfg.Exam.PassThreshold)
	wsHandler := transport.NewSessionHandler(service)
	apiHandler := transport.NewAPIHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting exam service on :%s", finalPort)
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

func timerSettings(cfg config.Config) app.TimerSettings {
	mode := app.TimerTotal
	if cfg.Exam.TimerMode == "per-question" {
		mode = app.TimerPerQuestion
	}
	total := cfg.Exam.TotalSeconds
	if total <= 0 {
		total = 1800
	}
	perQuestion := cfg.Exam.PerQuestionSeconds
	if perQuestion <= 0 {
		perQuestion = 60
	}
	return app.TimerSettings{
		Mode:               mode,
		TotalSeconds:       total,
		PerQuestionSeconds: perQuestion,
	}
}

// sampleExams provides minimal exam content; the Postgres loader replaces
// this in production.
func sampleExams() map[string]domain.Exam {
	return map[string]domain.Exam{
		"exam-1": {
			ID:    "exam-1",
			Slug:  "road-signs-basics",
			Title: "Road Signs Basics",
			Questions: []domain.Question{
				{
					ID:          "q1",
					Text:        "What does a red octagonal sign mean?",
					Options:     []string{"Yield", "Stop", "No entry"},
					AnswerIndex: 1,
					Explanation: "An octagon is reserved for stop signs.",
				},
				{
					ID:          "q2",
					Text:        "A triangular sign with a red border indicates?",
					Options:     []string{"A warning", "A speed limit", "Parking"},
					AnswerIndex: 0,
				},
			},
			TotalTimeSeconds: 600,
		},
	}
}

func sampleNotes() map[string]domain.Note {
	return map[string]domain.Note{
		"note-1": {
			ID:       "note-1",
			Title:    "Right of way",
			Content:  "Vehicles on the main road have priority over joining traffic.",
			Topic:    "priority-rules",
			Category: "rules",
		},
	}
}
