package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/batch"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/export"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/fetcher"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

var (
	resolveInput       string
	resolveOut         string
	resolveLive        bool
	resolveConcurrency int
	resolveRetry       int
	resolveLogJSON     bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a part-number list into CSV rows",
	Long:  "Reads part numbers from a .txt, .csv or .xlsx file, resolves each one and writes <out>.csv plus <out>_semicolon.csv.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyFetchFlags(cmd, resolveLive, resolveRetry)
		if cmd.Flags().Changed("concurrency") {
			cfg.Batch.Concurrency = resolveConcurrency
			cfg.Sanitize()
		}

		inputs, err := fetcher.ReadPartList(resolveInput)
		if err != nil {
			return err
		}

		runID := uuid.NewString()
		ctx = fetcher.WithRunID(ctx, runID)

		var sinks []fetcher.AttemptSink
		if resolveLogJSON {
			name := fmt.Sprintf("batch-%s.jsonl", time.Now().UTC().Format("20060102-150405"))
			jsonl, err := fetcher.NewJSONLSink(filepath.Join(cfg.Batch.LogDir, name))
			if err != nil {
				return err
			}
			defer jsonl.Close() //nolint:errcheck
			sinks = append(sinks, jsonl)
			zap.L().Info("attempt log enabled", zap.String("path", jsonl.Path()))
		}

		env, err := initEnv(ctx, sinks...)
		if err != nil {
			return err
		}
		defer env.Close()

		return runResolve(ctx, cmd.OutOrStdout(), env, runID, inputs, resolveOut)
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveInput, "input", "i", "", "part-number list (.txt, .csv or .xlsx)")
	resolveCmd.Flags().StringVarP(&resolveOut, "out", "o", "out/partsurfer", "output path prefix")
	resolveCmd.Flags().BoolVar(&resolveLive, "live", false, "allow network access (default from config)")
	resolveCmd.Flags().IntVar(&resolveConcurrency, "concurrency", batch.DefaultConcurrency, "parts resolved in parallel (default from config)")
	resolveCmd.Flags().IntVar(&resolveRetry, "retry", 2, "retries per request after the first attempt (default from config)")
	resolveCmd.Flags().BoolVar(&resolveLogJSON, "log-json", false, "write every fetch attempt to logs/batch-<ts>.jsonl")
	_ = resolveCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(resolveCmd)
}

// applyFetchFlags lets explicit --live and --retry flags override config.
func applyFetchFlags(cmd *cobra.Command, live bool, retry int) {
	if cmd.Flags().Changed("live") {
		cfg.Fetch.Live = live
	}
	if cmd.Flags().Changed("retry") {
		cfg.Fetch.Retries = retry
		cfg.Sanitize()
	}
}

func runResolve(ctx context.Context, out io.Writer, env *appEnv, runID string, inputs []string, prefix string) error {
	if len(inputs) == 0 {
		zap.L().Info("no part numbers in input")
	}

	start := time.Now()
	rows, err := batch.New(env.Orchestrator, cfg.Batch.Concurrency).Run(ctx, inputs)
	if err != nil {
		return eris.Wrap(err, "resolve batch")
	}

	commaPath, semiPath, err := export.WriteRows(prefix, rows)
	if err != nil {
		return err
	}

	if env.Store != nil {
		if n, err := env.Store.CountAttempts(ctx, runID); err == nil {
			zap.L().Info("attempts recorded", zap.String("run_id", runID), zap.Int("attempts", n))
		}
	}

	var manual int
	for _, r := range rows {
		if r != nil && r.Status == model.StatusCheckManually {
			manual++
		}
	}
	_, _ = fmt.Fprintf(out, "Resolved %d parts in %s (%d need manual review)\n", len(rows), time.Since(start).Round(time.Millisecond), manual)
	_, _ = fmt.Fprintf(out, "  %s\n  %s\n", commaPath, semiPath)
	return nil
}
