// Package nlu provides default fulfillments of the classification and
// extraction ports: a hint-scoring classifier and a pattern extractor, both
// driven entirely by the active domain config, plus an adapter for an
// OpenAI-compatible model endpoint. The orchestration core depends only on
// the port contracts, so any of these can be swapped for a hosted service.
package nlu

import (
	"context"
	"log/slog"
	"strings"

	"github.com/borosabel/orchestrator/internal/config"
	"github.com/borosabel/orchestrator/internal/logging"
	"github.com/borosabel/orchestrator/pkg/domain"
)

// HintClassifier scores each intent's match hint keywords against the
// utterance and returns the best match, falling back to the configured
// fallback intent when nothing scores.
type HintClassifier struct {
	configs *config.Manager
	logger  *slog.Logger
}

// NewHintClassifier creates a classifier over the active domain config.
func NewHintClassifier(configs *config.Manager, logger *slog.Logger) *HintClassifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HintClassifier{configs: configs, logger: logger}
}

// Classify resolves text to an intent name. It never fails: with no domain
// loaded or no hint matching, it returns the fallback intent.
func (c *HintClassifier) Classify(ctx context.Context, text string) (string, error) {
	rc := c.configs.Current()
	if rc == nil {
		return domain.IntentUnknown, nil
	}
	cfg := rc.Config

	haystack := strings.ToLower(text)
	best := ""
	bestScore := 0
	for _, it := range cfg.Intents {
		score := hintScore(haystack, it.MatchHint)
		if score > bestScore {
			best = it.Name
			bestScore = score
		}
	}

	if best == "" {
		return cfg.Fallback(), nil
	}

	c.logger.Debug("intent classified", "intent", best, "score", bestScore)
	return best, nil
}

// hintScore counts how many hint keywords occur in the utterance. Hints
// are whitespace- or pipe-separated keyword lists.
func hintScore(haystack, hint string) int {
	score := 0
	for _, kw := range strings.FieldsFunc(strings.ToLower(hint), func(r rune) bool {
		return r == ' ' || r == '|' || r == ','
	}) {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, kw) {
			score++
		}
	}
	return score
}
