package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"aipr/packages/agents"
	"aipr/packages/ai"
	"aipr/packages/config"
	"aipr/packages/handlers"
	"aipr/packages/logging"
	"aipr/packages/repository"
)

// run executes one patch run. Only configuration, issue source and startup
// failures are returned; per-file and git apply failures are logged and
// summarized.
func run(ctx context.Context, flags *rootFlags, out io.Writer) error {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.Logging.File = flags.logFile
	}

	logger, closeLog, err := logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfig, err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
		"maxTokens", cfg.AI.MaxTokens,
		"chunkSize", cfg.AI.ChunkSize,
		"target", cfg.Repository.TargetDirectory)

	issue, err := handlers.ResolveIssue(ctx, cfg)
	if err != nil {
		return err
	}

	completer, closeCompleter, err := ai.NewCompleter(ctx, cfg.AI)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCompleter(); err != nil {
			slog.Warn("Failed to close completion client", "error", err)
		}
	}()

	patchPath, err := cfg.PatchPath()
	if err != nil {
		return fmt.Errorf("failed to resolve patch path: %w", err)
	}

	agent := agents.NewPatchAgent(agents.PatchAgentConfig{
		Issue:            issue,
		TargetDirectory:  cfg.Repository.TargetDirectory,
		PatchPath:        patchPath,
		ChunkSize:        cfg.AI.ChunkSize,
		RespectGitignore: cfg.Repository.RespectGitignore,
		Completer:        completer,
		Applier:          repository.NewGitApplier(ctx, cfg.Repository.TargetDirectory),
		Out:              out,
	})

	result, err := agent.Execute(ctx)
	if err != nil {
		return err
	}

	printSummary(out, result)
	return nil
}

func printSummary(out io.Writer, result *agents.PatchResult) {
	switch {
	case !result.PatchWritten:
		fmt.Fprintln(out, "No patches generated.")
	case result.Applied:
		fmt.Fprintf(out, "Patch applied successfully: %s\n", result.PatchPath)
	case result.CheckError != nil:
		fmt.Fprintf(out, "Patch validation failed, nothing applied: %v\n", result.CheckError)
	case result.ApplyError != nil:
		fmt.Fprintf(out, "Patch application failed: %v\n", result.ApplyError)
	}

	if len(result.FailedFiles) > 0 {
		fmt.Fprintf(out, "Completion failed for %d file(s); their content was left unchanged.\n", len(result.FailedFiles))
	}
}
