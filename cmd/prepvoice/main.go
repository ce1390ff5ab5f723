package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/prepvoice/prepvoice/internal/backup"
	"github.com/prepvoice/prepvoice/internal/config"
	"github.com/prepvoice/prepvoice/internal/interview"
	"github.com/prepvoice/prepvoice/internal/llm"
	"github.com/prepvoice/prepvoice/internal/metrics"
	"github.com/prepvoice/prepvoice/internal/question"
	"github.com/prepvoice/prepvoice/internal/server"
	"github.com/prepvoice/prepvoice/internal/speech"
	"github.com/prepvoice/prepvoice/internal/storage"
	"github.com/prepvoice/prepvoice/internal/summary"
)

func main() {
	log.Println("prepvoice: starting")

	configPath := os.Getenv(config.EnvPrefix + "CONFIG")
	if configPath == "" {
		configPath = "prepvoice.yaml"
	}

	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	timeout := cfg.ParsedProviderTimeout()

	questionClient := buildLLMClient(cfg, cfg.QuestionModel, "question", timeout, collector)
	summaryClient := buildLLMClient(cfg, cfg.SummaryModel, "summary", timeout, collector)

	transcriber := speech.NewTranscriber(cfg.DeepgramAPIKey, cfg.STTModel, cfg.STTLanguage, timeout, collector)
	synthesizer := speech.NewSynthesizer(cfg.DeepgramAPIKey, cfg.TTSModel, timeout, collector)

	hub := server.NewHub()

	svc := interview.NewService(
		store,
		question.New(questionClient, collector),
		summary.New(summaryClient, collector),
		transcriber,
		synthesizer,
		hub,
		collector,
		log.Printf,
	)

	rl := server.NewRateLimiter(cfg.RatePerMinute, cfg.RateBurst)

	handler := server.Handler(server.Options{
		Orchestrator: svc,
		Auth:         server.NewTokenAuth(cfg.AuthTokens),
		Hub:          hub,
		RateLimiter:  rl,
		Requests:     collector,
		Metrics:      metrics.Handler(registry),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(15 * time.Minute)
			}
		}
	}()

	if cfg.GDriveFolderID != "" {
		uploader, upErr := backup.NewUploader(ctx, cfg.CredentialsFile, cfg.GDriveFolderID)
		if upErr != nil {
			log.Printf("warning: drive backup disabled: %v", upErr)
		} else {
			go func() {
				ticker := time.NewTicker(cfg.ParsedBackupInterval())
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						date := time.Now().UTC().Format("2006-01-02")
						if err := uploader.Upload(cfg.DBPath, date); err != nil {
							log.Printf("drive backup error: %v", err)
						}
					}
				}
			}()
		}
	}

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		log.Printf("prepvoice: API on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("prepvoice: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown failed: %v", err)
	}
}

// buildLLMClient resolves a "provider/model" spec to a bounded, timed
// client, or nil when the provider's key is missing. Generators treat a
// nil client as a permanent fallback.
func buildLLMClient(cfg config.Config, model, role string, timeout time.Duration, rec llm.CallRecorder) llm.Client {
	provider, modelName, err := llm.ParseModel(model)
	if err != nil {
		log.Printf("warning: %v", err)
		return nil
	}

	var apiKey string
	var opts []llm.Option
	switch provider {
	case "openai":
		apiKey = cfg.OpenAIAPIKey
		if cfg.LLMBaseURL != "" {
			opts = append(opts, llm.WithBaseURL(cfg.LLMBaseURL))
		}
	case "gemini":
		apiKey = cfg.GeminiAPIKey
	}
	if apiKey == "" {
		return nil
	}

	client, err := llm.NewClient(provider, apiKey, modelName, opts...)
	if err != nil {
		log.Printf("warning: llm client for %s unavailable: %v", model, err)
		return nil
	}
	return llm.WithCallTiming(llm.WithTimeout(client, timeout), role, rec)
}
