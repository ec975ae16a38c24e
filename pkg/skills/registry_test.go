package skills_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borosabel/orchestrator/pkg/domain"
	"github.com/borosabel/orchestrator/pkg/skills"
)

func TestRegistry_Invoke(t *testing.T) {
	reg := skills.NewRegistry()
	reg.Register("greet", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		name, _ := fields.GetString("name")
		return "hello " + name, nil
	})

	out, err := reg.Invoke(context.Background(), "greet", domain.FieldMap{
		"name": domain.StringValue("sam"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello sam", out)
}

func TestRegistry_Invoke_UnknownSkill(t *testing.T) {
	reg := skills.NewRegistry()

	_, err := reg.Invoke(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownSkill)
}

func TestRegistry_Invoke_HandlerErrorPassesThrough(t *testing.T) {
	boom := errors.New("backend down")
	reg := skills.NewRegistry()
	reg.Register("flaky", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		return "", boom
	})

	_, err := reg.Invoke(context.Background(), "flaky", nil)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_RegisterOverwritesAndNames(t *testing.T) {
	reg := skills.NewRegistry()
	reg.Register("b", func(ctx context.Context, fields domain.FieldMap) (string, error) { return "1", nil })
	reg.Register("a", func(ctx context.Context, fields domain.FieldMap) (string, error) { return "2", nil })
	reg.Register("b", func(ctx context.Context, fields domain.FieldMap) (string, error) { return "3", nil })

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.True(t, reg.Has("a"))
	assert.False(t, reg.Has("c"))

	out, err := reg.Invoke(context.Background(), "b", nil)
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}
