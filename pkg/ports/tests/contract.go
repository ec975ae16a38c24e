// Package tests provides reusable contract suites for ports implementations.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borosabel/orchestrator/pkg/domain"
	"github.com/borosabel/orchestrator/pkg/ports"
)

// SessionStoreContractTest verifies that an adapter complies with
// ports.SessionStore, including the copy-isolation requirement.
func SessionStoreContractTest(t *testing.T, store ports.SessionStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "no-such-session")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Save_Load_RoundTrip", func(t *testing.T) {
		sess := domain.NewSession("contract-1", "banking", "user-9", now)
		sess.Turns = append(sess.Turns, domain.Turn{
			Timestamp: now,
			UserInput: "I need a loan",
			Intent:    "loan_inquiry",
			Slots:     domain.FieldMap{"amount": domain.StringValue("50000")},
			Response:  "How much?",
			Domain:    "banking",
		})
		require.NoError(t, store.Save(ctx, sess))

		got, err := store.Load(ctx, "contract-1")
		require.NoError(t, err)
		assert.Equal(t, "banking", got.Domain)
		assert.Equal(t, "user-9", got.UserID)
		require.Len(t, got.Turns, 1)
		assert.Equal(t, "loan_inquiry", got.Turns[0].Intent)
		v, ok := got.Turns[0].Slots.GetString("amount")
		assert.True(t, ok)
		assert.Equal(t, "50000", v)
	})

	t.Run("Load_ReturnsIsolatedCopy", func(t *testing.T) {
		sess := domain.NewSession("contract-2", "banking", "", now)
		sess.Preferences["preferred_time_of_day"] = domain.StringValue("morning")
		require.NoError(t, store.Save(ctx, sess))

		first, err := store.Load(ctx, "contract-2")
		require.NoError(t, err)
		first.Preferences["preferred_time_of_day"] = domain.StringValue("evening")
		first.Context.PushFlow("tampered")

		second, err := store.Load(ctx, "contract-2")
		require.NoError(t, err)
		v, _ := second.Preferences.GetString("preferred_time_of_day")
		assert.Equal(t, "morning", v, "mutating a loaded session must not affect the store")
		assert.NotContains(t, second.Context.Flow, "tampered")
	})

	t.Run("List_ContainsSaved", func(t *testing.T) {
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "contract-1")
		assert.Contains(t, ids, "contract-2")
	})

	t.Run("Delete_Idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "contract-1"))
		require.NoError(t, store.Delete(ctx, "contract-1"))
		_, err := store.Load(ctx, "contract-1")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}
