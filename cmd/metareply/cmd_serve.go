package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/metareply/internal/accounts"
	"github.com/user/metareply/internal/debounce"
	"github.com/user/metareply/internal/dispatch"
	"github.com/user/metareply/internal/instagram"
	"github.com/user/metareply/internal/respond"
	"github.com/user/metareply/internal/router"
	"github.com/user/metareply/internal/sentiment"
	"github.com/user/metareply/internal/state"
	"github.com/user/metareply/internal/webhook"
	"github.com/user/metareply/pkg/llm"
	"github.com/user/metareply/pkg/llm/gemini"
	"github.com/user/metareply/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the metareply daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "metareply.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Collaborators
	creds := accounts.NewStore(cfg.Accounts)
	classifier := sentiment.NewAnalyzer()
	responder := instagram.NewClient()

	providerCfg := &llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}
	var provider llm.Provider
	switch cfg.LLM.Provider {
	case "openai":
		provider = openai.New(providerCfg)
	default:
		provider = gemini.New(providerCfg)
	}

	prompts, err := respond.NewPromptBuilder(cfg.SystemPromptPath, cfg.LLM.Model, cfg.LLM.MaxPromptTokens)
	if err != nil {
		return fmt.Errorf("create prompt builder: %w", err)
	}

	svc := respond.NewService(classifier, provider, responder, creds, prompts, respond.Defaults{
		DMPositive:      cfg.Responses.DMPositive,
		DMNegative:      cfg.Responses.DMNegative,
		CommentPositive: cfg.Responses.CommentPositive,
		CommentNegative: cfg.Responses.CommentNegative,
	})

	// Task backend
	exec := dispatch.New(cfg.Executor.MaxWorkers, cfg.Executor.SweepSchedule)

	// Debounce scheduler
	delays := debounce.Delays{
		InitialMin: time.Duration(cfg.Debounce.InitialDelayMinSec) * time.Second,
		InitialMax: time.Duration(cfg.Debounce.InitialDelayMaxSec) * time.Second,
		Reschedule: time.Duration(cfg.Debounce.RescheduleDelaySec) * time.Second,
		Expiry:     time.Duration(cfg.Debounce.DMExpirySec) * time.Second,
	}
	deb := debounce.New(exec, svc.DMCallback, delays)
	svc.BindClear(deb.Clear)

	// Router
	commentDelays := router.CommentDelays{
		Min:    time.Duration(cfg.Debounce.CommentDelayMinSec) * time.Second,
		Max:    time.Duration(cfg.Debounce.CommentDelayMaxSec) * time.Second,
		Expiry: time.Duration(cfg.Debounce.CommentExpirySec) * time.Second,
	}
	rt := router.New(deb, exec, classifier, svc, creds, commentDelays)
	rt.StopBatchOnSelfComment = cfg.StopBatchOnSelfComment

	// Event feed
	eventLog := state.NewEventLog(filepath.Join(cfg.DataDir, "webhook_events.json"), 100)
	if err := eventLog.Load(); err != nil {
		slog.Warn("failed to load stored webhook events", "error", err)
	}
	broadcast := state.NewBroadcaster()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec.Start(ctx)
	defer exec.Stop()

	server := webhook.NewServer(cfg.Webhook.AppSecret, cfg.Webhook.VerifyToken, rt, eventLog, broadcast)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metareply started",
			"listen_addr", cfg.ListenAddr,
			"data_dir", cfg.DataDir,
			"log_level", cfg.LogLevel,
			"llm_provider", cfg.LLM.Provider,
			"llm_model", cfg.LLM.Model,
			"accounts", len(cfg.Accounts),
			"max_workers", cfg.Executor.MaxWorkers,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-sigChan:
	}

	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
