package domain_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borosabel/orchestrator/pkg/domain"
)

func TestContext_PushFlow_BoundedRing(t *testing.T) {
	var c domain.Context
	for i := 0; i < 25; i++ {
		c.PushFlow(fmt.Sprintf("intent_%d", i))
	}

	assert.Len(t, c.Flow, domain.MaxFlowLength)
	// Oldest entries are evicted first.
	assert.Equal(t, "intent_15", c.Flow[0])
	assert.Equal(t, "intent_24", c.Flow[len(c.Flow)-1])
}

func TestSlotCollection_MissingInvariant(t *testing.T) {
	coll := domain.NewSlotCollection("loan_inquiry", []string{"amount", "purpose"}, 3)
	assert.Equal(t, []string{"amount", "purpose"}, coll.Missing)

	coll.Merge(domain.FieldMap{"amount": domain.StringValue("30000")})
	assert.Equal(t, []string{"purpose"}, coll.Missing)
	assert.False(t, coll.Complete())

	// Empty values must never be stored as collected.
	coll.Merge(domain.FieldMap{
		"purpose": domain.StringValue("   "),
		"amount":  nil,
	})
	assert.Equal(t, []string{"purpose"}, coll.Missing)
	v, ok := coll.Collected.GetString("amount")
	require.True(t, ok)
	assert.Equal(t, "30000", v, "a collected value is never unset by the collection")

	coll.Merge(domain.FieldMap{"purpose": domain.StringValue("Home purchase")})
	assert.Empty(t, coll.Missing)
	assert.True(t, coll.Complete())
}

func TestSlotCollection_ExtraneousKeysAreInert(t *testing.T) {
	coll := domain.NewSlotCollection("loan_inquiry", []string{"amount"}, 3)
	coll.Merge(domain.FieldMap{
		"amount":  domain.StringValue("100"),
		"comment": domain.StringValue("asap please"),
	})

	assert.True(t, coll.Complete())
	assert.NotContains(t, coll.Missing, "comment")
}

func TestFieldMap_JSONRoundTrip(t *testing.T) {
	in := domain.FieldMap{
		"purpose": domain.StringValue("Car purchase"),
		"amount":  domain.NumberValue(50000),
		"urgent":  domain.BoolValue(true),
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out domain.FieldMap
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, domain.IsEmpty(nil))
	assert.True(t, domain.IsEmpty(domain.StringValue("")))
	assert.True(t, domain.IsEmpty(domain.StringValue("  \t")))
	assert.False(t, domain.IsEmpty(domain.StringValue("x")))
	assert.False(t, domain.IsEmpty(domain.NumberValue(0)))
	assert.False(t, domain.IsEmpty(domain.BoolValue(false)))
}

func TestSession_CloneIsolation(t *testing.T) {
	sess := domain.NewSession("s1", "banking", "u1", time.Now())
	sess.Preferences["preferred_time_of_day"] = domain.StringValue("morning")

	clone := sess.Clone()
	clone.Preferences["preferred_time_of_day"] = domain.StringValue("night")
	clone.Context.PushFlow("tampered")

	v, _ := sess.Preferences.GetString("preferred_time_of_day")
	assert.Equal(t, "morning", v)
	assert.NotContains(t, sess.Context.Flow, "tampered")
}

func TestTurnResult_MarshalsMilliseconds(t *testing.T) {
	data, err := json.Marshal(domain.TurnResult{
		Intent:         "greet",
		Response:       "hi",
		Domain:         "banking",
		ProcessingTime: 1500 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"processing_time_ms":1500`)
}
