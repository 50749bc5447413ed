package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/healthcareplus/scheduling-agent/internal/agent"
	"github.com/healthcareplus/scheduling-agent/internal/api"
	"github.com/healthcareplus/scheduling-agent/internal/booking"
	"github.com/healthcareplus/scheduling-agent/internal/config"
	"github.com/healthcareplus/scheduling-agent/internal/db"
	"github.com/healthcareplus/scheduling-agent/internal/faq"
	"github.com/healthcareplus/scheduling-agent/internal/redisclient"
	"github.com/healthcareplus/scheduling-agent/internal/schedule"
	"github.com/healthcareplus/scheduling-agent/pkg/logging"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logLevel := "info"
	if cfg.Env == "dev" {
		logLevel = "debug"
	}
	logger := logging.New(logLevel)
	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres and apply migrations
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	// Schedule template and knowledge corpus
	template, err := schedule.Load(cfg.ScheduleFile)
	if err != nil {
		log.Fatalf("schedule template error: %v", err)
	}

	chunks, err := faq.LoadKnowledge(cfg.KnowledgeFile)
	if err != nil {
		log.Fatalf("knowledge corpus error: %v", err)
	}

	openaiClient := openai.NewClient(cfg.OpenAIAPIKey)

	store := faq.NewStore(openaiClient, cfg.EmbeddingModel, logger.Named("faq"))
	hydrateCtx, cancelHydrate := context.WithTimeout(rootCtx, 60*time.Second)
	err = store.Hydrate(hydrateCtx, chunks)
	cancelHydrate()
	if err != nil {
		log.Fatalf("knowledge hydration error: %v", err)
	}

	// Wire services
	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisDateLocker(rdb, cfg.LockTTL)
	bookingSvc := booking.NewService(repo, template, locker, logger.Named("booking"))

	faqSvc := faq.NewService(openaiClient, store, rdb, cfg.ChatModel, cfg.Clinic, logger.Named("faq"))

	sessions := agent.NewSessionStore(rdb, cfg.SessionTTL, cfg.SessionWindow)
	agentSvc := agent.NewService(openaiClient, sessions, bookingSvc, faqSvc,
		cfg.ChatModel, cfg.Clinic, cfg.LLMTimeout, logger.Named("agent"))

	router := api.NewRouter(api.RouterConfig{
		Agent:   agentSvc,
		FAQ:     faqSvc,
		Booking: bookingSvc,
		Health:  api.NewHealthHandler(pgPool, rdb, cfg.OpenAIAPIKey != "", store.Size()),
		Clinic:  cfg.Clinic,
		Logger:  logger.Named("http"),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}
