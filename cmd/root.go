package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "partsurfer",
	Short:         "Resolve HPE part numbers into catalog metadata",
	Long:          "Looks up HPE part numbers on PartSurfer and buy.hpe.com and merges the answers into one row per part.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		cfg.WarnInvalid(zap.L())

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := execute(os.Stderr); err != nil {
		os.Exit(1)
	}
}

// execute runs the command tree. Errors are printed to w once, whether or
// not the logger came up.
func execute(w io.Writer) error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(w, "Error:", err)
	}
	return err
}
