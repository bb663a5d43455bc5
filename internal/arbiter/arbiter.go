// Package arbiter cross-checks extracted product text against independent
// LLM oracles and decides whether a row needs manual review.
package arbiter

import (
	"context"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
)

// ReasonSKUMismatch marks a verdict where an oracle read a different SKU.
const ReasonSKUMismatch = "sku-mismatch"

// manualThreshold is the agreement below which two oracles are in conflict.
const manualThreshold = 2.0 / 3.0

// Oracle answers one prompt with the fields it could verify.
type Oracle interface {
	Name() string
	Ask(ctx context.Context, p Prompt) (model.OracleAnswer, error)
}

// Arbiter runs every configured oracle over the same prompt and reconciles
// their answers.
type Arbiter struct {
	oracles []Oracle
}

// New creates an Arbiter. Nil oracles are skipped.
func New(oracles ...Oracle) *Arbiter {
	a := &Arbiter{}
	for _, o := range oracles {
		if o != nil {
			a.oracles = append(a.oracles, o)
		}
	}
	return a
}

// Enabled reports whether at least one oracle is configured.
func (a *Arbiter) Enabled() bool {
	return a != nil && len(a.oracles) > 0
}

// Arbitrate asks every oracle about ev and returns the reconciled verdict.
// Oracle failures are logged and dropped.
func (a *Arbiter) Arbitrate(ctx context.Context, ev Evidence) model.Verdict {
	if !a.Enabled() {
		return model.Verdict{}
	}
	prompt, ok := BuildPrompt(ev)
	if !ok {
		return model.Verdict{}
	}
	log := zap.L().With(zap.String("sku", ev.ExpectedSKU), zap.String("prompt_hash", prompt.Hash))

	slots := make([]*model.OracleAnswer, len(a.oracles))
	g, gctx := errgroup.WithContext(ctx)
	for i, o := range a.oracles {
		g.Go(func() error {
			ans, err := o.Ask(gctx, prompt)
			if err != nil {
				log.Warn("arbiter: oracle failed", zap.String("oracle", o.Name()), zap.Error(err))
				return nil
			}
			if ans.Oracle == "" {
				ans.Oracle = o.Name()
			}
			slots[i] = &ans
			return nil
		})
	}
	_ = g.Wait()

	var answers []model.OracleAnswer
	for _, s := range slots {
		if s != nil {
			answers = append(answers, *s)
		}
	}
	if len(answers) == 0 {
		log.Warn("arbiter: no oracle answered")
		return model.Verdict{PromptHash: prompt.Hash}
	}

	v := reconcile(answers, ev.ExpectedSKU)
	v.PromptHash = prompt.Hash
	log.Info("arbiter: verdict",
		zap.Float64("agreement", v.Agreement),
		zap.Float64("confidence", v.Confidence),
		zap.Bool("manual_check", v.ManualCheck),
		zap.String("reason", v.Reason),
	)
	return v
}

func reconcile(answers []model.OracleAnswer, expectedSKU string) model.Verdict {
	v := model.Verdict{Enabled: true, Answers: answers}

	multi := len(answers) > 1
	if multi {
		v.Agreement = agreement(answers)
	} else {
		v.Agreement = answers[0].Confidence
	}

	if skuMismatch(answers, expectedSKU) {
		v.ManualCheck = true
		v.Reason = ReasonSKUMismatch
		return v
	}

	var sum float64
	for _, ans := range answers {
		if v.FinalTitle == "" {
			v.FinalTitle = ans.Title
		}
		if v.FinalDescription == "" {
			v.FinalDescription = ans.MarketingDescription
		}
		sum += ans.Confidence
	}
	v.Confidence = round3(clamp01(sum / float64(len(answers))))
	v.ManualCheck = multi && v.FinalDescription != "" && v.Agreement < manualThreshold

	if src := evidenceSource(answers); src != nil {
		v.EvidenceSnippet = src.EvidenceSnippet
		v.CharStart = src.CharStart
		v.CharEnd = src.CharEnd
	}
	return v
}

// agreement is the fraction of title, description and SKU on which every
// answer agrees.
func agreement(answers []model.OracleAnswer) float64 {
	fields := []func(model.OracleAnswer) string{
		func(a model.OracleAnswer) string { return a.Title },
		func(a model.OracleAnswer) string { return a.MarketingDescription },
		func(a model.OracleAnswer) string { return a.SKU },
	}
	matches := 0
	for _, field := range fields {
		first := partnum.Fold(field(answers[0]))
		same := true
		for _, ans := range answers[1:] {
			if partnum.Fold(field(ans)) != first {
				same = false
				break
			}
		}
		if same {
			matches++
		}
	}
	return float64(matches) / float64(len(fields))
}

func skuMismatch(answers []model.OracleAnswer, expected string) bool {
	want := partnum.Fold(expected)
	var seen string
	for _, ans := range answers {
		got := partnum.Fold(ans.SKU)
		if got == "" {
			continue
		}
		if want != "" {
			if got != want {
				return true
			}
			continue
		}
		if seen != "" && got != seen {
			return true
		}
		seen = got
	}
	return false
}

func evidenceSource(answers []model.OracleAnswer) *model.OracleAnswer {
	for i := range answers {
		a := &answers[i]
		if a.EvidenceSnippet != "" && a.CharStart != nil && a.CharEnd != nil {
			return a
		}
	}
	for i := range answers {
		if answers[i].EvidenceSnippet != "" {
			return &answers[i]
		}
	}
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
