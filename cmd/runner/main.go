package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/api"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/archive"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/audit"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/cache"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/control"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/openai"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/orchestrator"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/pipeline"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/prompts"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/tgstat"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/twelvelabs"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/config"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting TgChannelRec runner")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to build orchestrator", zap.Error(err))
	}

	status := api.NewStatus()

	// Status server
	if cfg.Server.Enabled {
		srv := api.NewServer(&cfg.Server, status, cfg.Logging.Level == "DEBUG")
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("Status server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Status server forced to shutdown", zap.Error(err))
			}
		}()
	}

	if err := run(ctx, cfg, orch, status); err != nil && err != context.Canceled {
		logger.Fatal("Runner failed", zap.Error(err))
	}

	logger.Info("Runner exited")
}

// run executes cycles until the context is canceled, or a single cycle
// in once mode.
func run(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, status *api.Status) error {
	logger := logging.GetLogger()

	cycle := func() error {
		status.CycleStarted()
		result, err := orch.RunCycle(ctx)
		status.CycleFinished(result)
		return err
	}

	if cfg.Runner.Once {
		return cycle()
	}

	ticker := time.NewTicker(cfg.Runner.Interval)
	defer ticker.Stop()

	for {
		if err := cycle(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// a failed cycle is logged and retried on the next tick
			logger.Error("Cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// buildOrchestrator wires the providers, the control table and the
// pipeline from configuration.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, error) {
	logger := logging.GetLogger()

	sheetsClient, err := sheets.NewClient(&cfg.Sheets)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	controlSS, err := sheetsClient.Open(ctx, cfg.Sheets.ControlSpreadsheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to open control spreadsheet: %w", err)
	}
	mainWS, err := controlSS.Worksheet(ctx, control.MainWorksheet)
	if err != nil {
		return nil, fmt.Errorf("failed to open control worksheet: %w", err)
	}
	table, err := control.Open(ctx, mainWS)
	if err != nil {
		return nil, err
	}

	logWS, err := controlSS.EnsureWorksheet(ctx, control.LogWorksheet, 1000, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit worksheet: %w", err)
	}
	auditLog := audit.New(logWS)
	if err := auditLog.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare audit worksheet: %w", err)
	}

	tgstatClient, err := tgstat.New(&cfg.TGStat)
	if err != nil {
		return nil, fmt.Errorf("failed to create tgstat client: %w", err)
	}
	openaiClient, err := openai.New(&cfg.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	videoClient, err := twelvelabs.New(&cfg.TwelveLabs)
	if err != nil {
		return nil, fmt.Errorf("failed to create twelvelabs client: %w", err)
	}

	idxCache, err := cache.New(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	db, err := archive.Open(&cfg.Archive, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	store := archive.NewStore(db)

	promptSet, err := prompts.Load(cfg.Runner.PromptsFile)
	if err != nil {
		return nil, err
	}

	resolver := pipeline.NewResolver(tgstatClient, auditLog)
	ranker := pipeline.NewRanker(tgstatClient, auditLog, store, cfg.Runner.TopN, cfg.TGStat.PostLimit)
	enricher := pipeline.NewEnricher(openaiClient, videoClient, idxCache, promptSet, auditLog,
		cfg.OpenAI.Model, cfg.OpenAI.MiniModel, cfg.TwelveLabs.PollInterval, cfg.TwelveLabs.PollTimeout)
	pipe := pipeline.New(resolver, ranker, enricher)

	logger.Info("Orchestrator wired",
		zap.Bool("archive", db != nil),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Int("top_n", cfg.Runner.TopN))

	return orchestrator.New(table, sheetsClient, pipe, auditLog, store,
		cfg.Runner.StartLookbackDays, cfg.Runner.RepeatLookbackDays), nil
}
