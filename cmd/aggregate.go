package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/export"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/fetcher"
)

var (
	aggregateInput string
	aggregateOut   string
	aggregateLive  bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Query every catalog source independently and write one column per source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("live") {
			cfg.Fetch.Live = aggregateLive
		}

		inputs, err := fetcher.ReadPartList(aggregateInput)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return runAggregate(ctx, cmd.OutOrStdout(), env, inputs, aggregateOut)
	},
}

func init() {
	aggregateCmd.Flags().StringVarP(&aggregateInput, "input", "i", "", "part-number list (.txt, .csv or .xlsx)")
	aggregateCmd.Flags().StringVarP(&aggregateOut, "out", "o", "out/aggregate.csv", "output CSV path")
	aggregateCmd.Flags().BoolVar(&aggregateLive, "live", false, "allow network access (default from config)")
	_ = aggregateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(ctx context.Context, out io.Writer, env *appEnv, inputs []string, path string) error {
	rows := env.Aggregator.AggregateAll(ctx, inputs)
	if err := ctx.Err(); err != nil {
		return err
	}

	commaPath, semiPath, err := export.WriteAggregate(path, env.Aggregator.Sources(), rows)
	if err != nil {
		return err
	}

	zap.L().Info("aggregate complete", zap.Int("inputs", len(inputs)), zap.Int("rows", len(rows)))
	_, _ = fmt.Fprintf(out, "Aggregated %d parts across %d sources\n", len(rows), len(env.Aggregator.Sources()))
	_, _ = fmt.Fprintf(out, "  %s\n  %s\n", commaPath, semiPath)
	return nil
}
