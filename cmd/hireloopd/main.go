package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hireloop/hireloop/internal/ai"
	"github.com/hireloop/hireloop/internal/api"
	"github.com/hireloop/hireloop/internal/candidates"
	"github.com/hireloop/hireloop/internal/chat"
	"github.com/hireloop/hireloop/internal/config"
	"github.com/hireloop/hireloop/internal/enrich"
	"github.com/hireloop/hireloop/internal/realtime"
	"github.com/hireloop/hireloop/internal/store"
	"github.com/hireloop/hireloop/internal/web"
)

func main() {
	cfg := config.Load()
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	st := store.NewStore(db)
	hub := realtime.NewHub()

	var fetcher candidates.ProfileFetcher
	var searcher ai.Searcher
	if cfg.ProfileAPIURL != "" {
		httpFetcher := &candidates.HTTPProfileFetcher{BaseURL: cfg.ProfileAPIURL, APIKey: cfg.ProfileAPIKey}
		fetcher = httpFetcher
		searcher = httpFetcher
	} else {
		log.Printf("profile API not configured; storing bare profiles")
		fetcher = candidates.ProfileFetcherFunc(func(_ context.Context, handle string) (map[string]any, error) {
			return map[string]any{"handle": handle}, nil
		})
	}
	cands := &candidates.Service{Store: st, Hub: hub, Fetcher: fetcher}

	llmClient, err := ai.NewClient(ai.Config{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
	}, cands)
	if err != nil {
		log.Fatalf("llm client: %v", err)
	}
	llmClient.Searcher = searcher

	apiServer := &api.Server{
		Store:          st,
		Hub:            hub,
		Chat:           &chat.Service{Store: st, Hub: hub, Engine: llmClient},
		Candidates:     cands,
		Enrich:         &enrich.Scheduler{Store: st, Hub: hub, Deriver: llmClient, BatchSize: cfg.EnrichBatchSize},
		MaxChatMessage: cfg.MaxChatMessage,
	}

	webServer := &web.Server{Dir: cfg.WebDir}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Handler())
	mux.Handle("/", webServer.Handler())

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("hireloopd listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	_ = httpServer.Close()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
