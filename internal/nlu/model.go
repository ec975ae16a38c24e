package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/borosabel/orchestrator/internal/config"
	"github.com/borosabel/orchestrator/internal/logging"
	"github.com/borosabel/orchestrator/pkg/domain"
)

// ModelOptions is the shape of the opaque options.model block a domain
// config carries for hosted-model capabilities.
type ModelOptions struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	TimeoutSecs int     `mapstructure:"timeout_seconds"`
}

// ModelClient fulfills both capability ports against an OpenAI-compatible
// chat completions endpoint. Prompt templates come from the domain config;
// the core never sees them.
type ModelClient struct {
	configs *config.Manager
	logger  *slog.Logger
	client  *http.Client
}

// NewModelClient builds a client; per-call parameters are re-read from the
// active config so a domain switch rebinds the capability automatically.
func NewModelClient(configs *config.Manager, logger *slog.Logger) *ModelClient {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ModelClient{
		configs: configs,
		logger:  logger,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Classify asks the model to pick one intent name from the active domain's
// catalog. Any failure surfaces as an error; the engine degrades it to the
// fallback intent.
func (m *ModelClient) Classify(ctx context.Context, text string) (string, error) {
	rc := m.configs.Current()
	if rc == nil {
		return "", domain.ErrNoDomainLoaded
	}
	cfg := rc.Config

	names := make([]string, 0, len(cfg.Intents))
	for _, it := range cfg.Intents {
		names = append(names, it.Name)
	}

	system := cfg.PromptTemplates["classify"]
	if system == "" {
		system = "Classify the user message into exactly one of these intents and answer with the intent name only: " + strings.Join(names, ", ")
	}

	reply, err := m.complete(ctx, cfg, system, text)
	if err != nil {
		return "", err
	}

	candidate := strings.TrimSpace(strings.ToLower(reply))
	for _, name := range names {
		if candidate == name {
			return name, nil
		}
	}
	m.logger.Debug("model returned unlisted intent", "candidate", candidate)
	return cfg.Fallback(), nil
}

// Extract asks the model for a JSON object of slot values for the intent.
func (m *ModelClient) Extract(ctx context.Context, intent, text string) (domain.FieldMap, error) {
	rc := m.configs.Current()
	if rc == nil {
		return nil, domain.ErrNoDomainLoaded
	}
	cfg := rc.Config

	defs := cfg.SlotDefs(intent)
	if len(defs) == 0 {
		return domain.FieldMap{}, nil
	}

	var slotNames []string
	for _, def := range defs {
		slotNames = append(slotNames, def.Name)
	}

	system := cfg.PromptTemplates["extract"]
	if system == "" {
		system = fmt.Sprintf("Extract values for the fields [%s] from the user message for intent %q. Answer with a flat JSON object containing only fields you found.",
			strings.Join(slotNames, ", "), intent)
	}

	reply, err := m.complete(ctx, cfg, system, text)
	if err != nil {
		return nil, err
	}

	var plain map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(reply)), &plain); err != nil {
		return nil, fmt.Errorf("model reply is not a JSON object: %w", err)
	}
	return domain.FieldsFromAny(plain), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

func (m *ModelClient) complete(ctx context.Context, cfg *domain.DomainConfig, system, user string) (string, error) {
	var opts ModelOptions
	if err := mapstructure.Decode(cfg.Options.Model, &opts); err != nil {
		return "", fmt.Errorf("invalid model options: %w", err)
	}
	if opts.BaseURL == "" {
		return "", fmt.Errorf("model options missing base_url")
	}
	if opts.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutSecs)*time.Second)
		defer cancel()
	}

	body, err := json.Marshal(chatRequest{
		Model: opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimSuffix(opts.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+opts.APIKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model endpoint returned %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// extractJSONObject tolerates models that wrap the object in prose or
// code fences.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
