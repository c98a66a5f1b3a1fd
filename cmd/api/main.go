package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"masterplan-studio/internal/api"
	"masterplan-studio/internal/archive"
	"masterplan-studio/internal/config"
	"masterplan-studio/internal/generate"
	"masterplan-studio/internal/jobs"
	"masterplan-studio/internal/ratelimit"
	"masterplan-studio/internal/sketch"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	store := jobs.Open(cfg.JobsDir)

	var exec jobs.Executor
	if cfg.JobWorkers > 0 {
		pool := jobs.NewPoolExecutor(cfg.JobWorkers)
		defer pool.Close()
		exec = pool
	}
	manager := jobs.NewManager(store, exec)

	var gen generate.Generator
	if cfg.OpenAIAPIKey != "" {
		client, err := generate.NewClient(cfg.OpenAIAPIKey, cfg.GenModel)
		if err != nil {
			log.Fatalf("init generation client: %v", err)
		}
		client.SetTimeout(cfg.GenTimeout)
		gen = client
	}

	sketches, err := sketch.NewStore(ctx, cfg)
	if err != nil {
		log.Fatalf("init sketch store: %v", err)
	}

	service := generate.NewService(gen, manager, sketches, cfg.GenMaxTokens)
	if !service.Configured() {
		log.Printf("OPENAI_API_KEY is not set, generation jobs will fail with a configuration error")
	}

	var archiver jobs.Archiver
	if cfg.PostgresDSN != "" {
		ar, err := archive.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Printf("job archive unavailable, sweeping without archival: %v", err)
		} else {
			defer ar.Close()
			if err := ar.EnsureSchema(ctx); err != nil {
				log.Printf("job archive schema: %v", err)
			} else {
				archiver = ar
			}
		}
	}

	janitor := jobs.NewJanitor(store, cfg.SweepInterval, cfg.JobMaxAge, archiver)
	go janitor.Run(ctx)

	var limiter *ratelimit.Bucket
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		limiter = ratelimit.NewBucket(client, cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)
	}

	sessions := api.NewSessions(cfg.SessionTTL)
	server := api.New(cfg, manager, service, sessions, limiter)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	log.Printf("api listening on :%s", cfg.HTTPPort)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}
