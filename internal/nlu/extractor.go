package nlu

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/borosabel/orchestrator/internal/config"
	"github.com/borosabel/orchestrator/internal/logging"
	"github.com/borosabel/orchestrator/pkg/domain"
)

// PatternExtractor pulls slot candidates out of an utterance using the
// per-slot regular expressions declared in the domain config. Slots
// without a pattern are matched against their enumerated choices, if any.
type PatternExtractor struct {
	configs *config.Manager
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewPatternExtractor creates an extractor over the active domain config.
func NewPatternExtractor(configs *config.Manager, logger *slog.Logger) *PatternExtractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PatternExtractor{
		configs: configs,
		logger:  logger,
		cache:   make(map[string]*regexp.Regexp),
	}
}

// Extract returns candidate fields for the intent. Candidates still pass
// through schema validation in the engine, so this stays permissive.
func (e *PatternExtractor) Extract(ctx context.Context, intent, text string) (domain.FieldMap, error) {
	rc := e.configs.Current()
	if rc == nil {
		return domain.FieldMap{}, nil
	}

	fields := make(domain.FieldMap)
	for _, def := range rc.Config.SlotDefs(intent) {
		if def.Pattern != "" {
			if value, ok := e.matchPattern(def, text); ok {
				fields[def.Name] = domain.StringValue(value)
			}
			continue
		}
		if def.Kind == domain.SlotEnumerated {
			if choice, ok := matchEnumerated(def.Choices, text); ok {
				fields[def.Name] = domain.StringValue(choice)
			}
		}
	}
	return fields, nil
}

func (e *PatternExtractor) matchPattern(def domain.SlotDefinition, text string) (string, bool) {
	re, err := e.compile(def.Pattern)
	if err != nil {
		e.logger.Warn("invalid slot pattern", "slot", def.Name, "err", err)
		return "", false
	}

	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	value := m[0]
	if len(m) > 1 {
		value = m[1]
	}
	return applyTransform(def.Transform, value), value != ""
}

func (e *PatternExtractor) compile(pattern string) (*regexp.Regexp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if re, ok := e.cache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.cache[pattern] = re
	return re, nil
}

// matchEnumerated looks for a declared choice mentioned verbatim
// (case-insensitively) in the utterance.
func matchEnumerated(choices []string, text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, c := range choices {
		if strings.Contains(lower, strings.ToLower(c)) {
			return c, true
		}
	}
	return "", false
}

// applyTransform normalizes a captured value. Unknown transform names pass
// the value through unchanged.
func applyTransform(transform, value string) string {
	switch transform {
	case "digits":
		var b strings.Builder
		for _, r := range value {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		return b.String()
	case "capitalize":
		value = strings.TrimSpace(value)
		runes := []rune(value)
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		return string(runes)
	case "lower":
		return strings.ToLower(strings.TrimSpace(value))
	default:
		return strings.TrimSpace(value)
	}
}
