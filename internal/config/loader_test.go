package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borosabel/orchestrator/internal/config"
	"github.com/borosabel/orchestrator/pkg/domain"
)

func TestLoadFile(t *testing.T) {
	cfg, err := config.LoadFile("testdata/banking.yaml")
	require.NoError(t, err)

	assert.Equal(t, "banking", cfg.Name)
	assert.Equal(t, "1.0", cfg.Version)
	assert.Len(t, cfg.Intents, 4)

	loan := cfg.Intent("loan_inquiry")
	require.NotNil(t, loan)
	assert.Equal(t, []string{"amount", "purpose"}, loan.RequiredSlots)
	assert.Equal(t, "quote", loan.Skill)

	amount := cfg.SlotDef("loan_inquiry", "amount")
	require.NotNil(t, amount)
	assert.Equal(t, domain.SlotScalar, amount.Kind)
	assert.Equal(t, "positive_number", amount.Validator)
	assert.Equal(t, "digits", amount.Transform)

	assert.Equal(t, "unknown", cfg.Fallback())
	assert.Equal(t, 2, cfg.MaxSlotAttempts())
	assert.Equal(t, "builtin.echo", cfg.Skills["quote"])
}

func TestLoadFile_ModelOptionsStayOpaque(t *testing.T) {
	cfg, err := config.LoadFile("testdata/banking.yaml")
	require.NoError(t, err)

	require.NotNil(t, cfg.Options.Model)
	assert.Equal(t, "http://localhost:9999/v1", cfg.Options.Model["base_url"])
	assert.Equal(t, "test-model", cfg.Options.Model["model"])
	assert.Equal(t, 5, cfg.Options.Model["timeout_seconds"])
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := config.LoadFile("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}

func TestParse_RejectsMalformedYAML(t *testing.T) {
	_, err := config.Parse([]byte("intents: [un, closed"))
	assert.Error(t, err)
}

func TestParse_DefaultsWhenOptionsAbsent(t *testing.T) {
	cfg, err := config.Parse([]byte(`
metadata:
  name: tiny
  version: "0.1"
intents:
  - name: greet
    match_hint: hi
    skill: greeting
skills:
  greeting: builtin.greet
`))
	require.NoError(t, err)

	assert.Equal(t, domain.IntentUnknown, cfg.Fallback())
	assert.Equal(t, domain.DefaultMaxSlotAttempts, cfg.MaxSlotAttempts())
	assert.Nil(t, cfg.Options.Model)
}
