package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	logLevel   string
	logFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "aipr",
		Short: "Generate and apply a patch for an issue using a language model",
		Long: `aipr reads an issue, finds the files it mentions in the target directory,
asks a completion endpoint to rewrite them, writes the differences to a
unified patch file and applies it with git.

Configuration comes from environment variables (optionally loaded from .env)
and an optional YAML file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to a YAML config file (default $AIPR_CONFIG)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "also write JSON logs to this rotating file")
	return cmd
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("aipr failed", "error", err)
		stop()
		os.Exit(1)
	}
}
