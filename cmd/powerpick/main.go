package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/powerpick/internal/config"
	"github.com/rewired-gh/powerpick/internal/history"
	"github.com/rewired-gh/powerpick/internal/logger"
	"github.com/rewired-gh/powerpick/internal/models"
	"github.com/rewired-gh/powerpick/internal/picker"
	"github.com/rewired-gh/powerpick/internal/server"
	"github.com/rewired-gh/powerpick/internal/telegram"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "powerpick",
		Short:        "Powerball lucky pick generator",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to configuration file (optional)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve picks over HTTP and answer Telegram commands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.RunE = serve.RunE

	var format string
	var notify bool
	pick := &cobra.Command{
		Use:   "pick",
		Short: "Generate one batch of picks and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPick(cmd.Context(), configPath, format, notify, cmd.OutOrStdout())
		},
	}
	pick.Flags().StringVar(&format, "format", "json", "Output format: json or text")
	pick.Flags().BoolVar(&notify, "notify", false, "Also deliver the batch to Telegram")

	root.AddCommand(serve, pick)
	return root
}

// setup loads and validates the configuration, initializes logging and builds the generator.
func setup(configPath string) (*config.Config, *picker.Generator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded (config file: %s)", configPath)

	src, err := history.NewSource(cfg.History)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize draw history: %w", err)
	}
	logger.Debug("Draw history source: %s", cfg.History.Source)

	return cfg, picker.New(src, picker.OptionsFromConfig(cfg.Generator), nil), nil
}

func runServe(parent context.Context, configPath string) error {
	cfg, gen, err := setup(configPath)
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, gen, version)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if cfg.Telegram.Enabled {
		telegramClient, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Error("Failed to initialize Telegram client: %v", err)
		} else {
			logger.Info("Telegram client initialized successfully")
			go telegramClient.ListenForCommands(ctx, gen)
		}
	} else {
		logger.Debug("Telegram commands disabled")
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, cleaning up...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	logger.Info("Service stopped")
	return nil
}

func runPick(ctx context.Context, configPath, format string, notify bool, out io.Writer) error {
	if format != "json" && format != "text" {
		return fmt.Errorf("unknown format %q: use json or text", format)
	}

	cfg, gen, err := setup(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batch, err := gen.Generate(ctx)
	if err != nil {
		return err
	}

	if err := writeBatch(out, batch, format); err != nil {
		return err
	}

	if notify {
		if !cfg.Telegram.Enabled {
			return fmt.Errorf("--notify requires telegram.enabled")
		}
		telegramClient, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		if err := telegramClient.SendBatch(ctx, batch); err != nil {
			return err
		}
		logger.Info("Batch %s delivered to Telegram", batch.ID)
	}
	return nil
}

func writeBatch(out io.Writer, batch *models.Batch, format string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(server.PickResponse{Picks: batch.Picks})
	}

	for i, p := range batch.Picks {
		nums := make([]string, len(p.Numbers))
		for j, n := range p.Numbers {
			nums[j] = fmt.Sprintf("%2d", n)
		}
		if _, err := fmt.Fprintf(out, "%d. %s | PB %2d\n", i+1, strings.Join(nums, " "), p.Special); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "batch %s from %d draws\n", batch.ID, batch.Draws)
	return err
}
