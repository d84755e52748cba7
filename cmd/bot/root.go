package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/bot"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/config"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/telegram"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/utils/logger"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "bot",
		Short:         "Solana private-sale and trading Telegram bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), opts)
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (json, yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newHealthcheckCmd(opts),
	)
	return rootCmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), opts)
		},
	}
}

func newHealthcheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Check that the Telegram token works (exit 0 on success)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(opts.configPath, opts.envFile)
			if err != nil {
				return err
			}

			gateway, err := telegram.New(telegram.Config{Token: cfg.TelegramToken})
			if err != nil {
				return fmt.Errorf("❌ Bot health check failed: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := gateway.Ping(ctx); err != nil {
				return fmt.Errorf("❌ Bot health check failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✅ Bot is healthy: @%s\n", gateway.Username())
			return nil
		},
	}
}

func runBot(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.LoadConfig(opts.configPath, opts.envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	log.WithOperation("startup").Info("Configuration loaded",
		zap.Int("rpc_endpoints", len(cfg.RPCList)),
		zap.Bool("debug", cfg.DebugLogging),
		zap.String("log_file", cfg.LogFile))

	runner, err := bot.NewRunner(cfg, log.WithComponent("bot"))
	if err != nil {
		log.LogError("Failed to initialize bot", err)
		_ = log.Sync()
		return err
	}
	runner.OnShutdown("logger", log.Close)

	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("bot execution error: %w", err)
	}
	return nil
}
