package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/store"
)

var storeRunID string

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Maintain the row cache and attempt log",
}

func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

var storePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached rows older than the configured TTL",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteExpiredRows(cmd.Context())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired rows\n", n)
		return nil
	},
}

var storeAttemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Count recorded fetch attempts, optionally for one run",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.CountAttempts(cmd.Context(), storeRunID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d attempts\n", n)
		return nil
	},
}

func init() {
	storeAttemptsCmd.Flags().StringVar(&storeRunID, "run", "", "only count attempts of this run id")
	storeCmd.AddCommand(storePurgeCmd, storeAttemptsCmd)
	rootCmd.AddCommand(storeCmd)
}
