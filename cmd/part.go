package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

var (
	partLive   bool
	partVerify bool
)

// partOutput is what `part` prints: the row plus, on request, the arbiter
// verdict.
type partOutput struct {
	Row     *model.Row     `json:"row"`
	Verdict *model.Verdict `json:"verdict,omitempty"`
}

var partCmd = &cobra.Command{
	Use:   "part <pn>",
	Short: "Resolve one part number and print the row as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("live") {
			cfg.Fetch.Live = partLive
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		return runPart(cmd.Context(), cmd.OutOrStdout(), env, args[0], partVerify)
	},
}

func init() {
	partCmd.Flags().BoolVar(&partLive, "live", false, "allow network access (default from config)")
	partCmd.Flags().BoolVar(&partVerify, "verify", false, "cross-check the Buy.HPE page with the configured LLM oracles")
	rootCmd.AddCommand(partCmd)
}

func runPart(ctx context.Context, out io.Writer, env *appEnv, raw string, verify bool) error {
	row, err := env.Orchestrator.Resolve(ctx, raw)
	if err != nil {
		return eris.Wrapf(err, "resolve %q", raw)
	}

	res := partOutput{Row: row}
	if verify {
		if err := cfg.Validate("verify"); err != nil {
			return err
		}
		v := env.verify(ctx, row)
		res.Verdict = &v
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(res), "write part json")
}
