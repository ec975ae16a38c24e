// Package ports defines the capability interfaces the orchestration engine
// depends on. Implementations live in adapters; the core only sees these
// contracts.
package ports

import (
	"context"

	"github.com/borosabel/orchestrator/pkg/domain"
)

// IntentClassifier resolves a raw utterance to an intent name.
//
// Implementations must return a name from the configured intent set or the
// configured fallback intent; any internal failure should surface as an
// error so the engine can degrade to the fallback rather than crash a turn.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// SlotExtractor pulls structured fields for an intent out of a raw
// utterance. The engine validates the result against the slot schema, so
// extractors may return candidate values freely.
type SlotExtractor interface {
	Extract(ctx context.Context, intent, text string) (domain.FieldMap, error)
}
