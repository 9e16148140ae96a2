package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompts_IncludesGiftConstraints(t *testing.T) {
	st := newMemStore()
	gift := seedGift(st)

	system, user := buildPrompts(GiftContext{Gift: gift})

	assert.Contains(t, system, "[Gift mode]")
	assert.Contains(t, system, "Budget: JPY 3000 - 8000")
	assert.Contains(t, system, "Occasion: birthday")
	assert.Contains(t, user, defaultUserQuery)
}

func TestBuildPrompts_HandoffSummaryBecomesUserQuery(t *testing.T) {
	st := newMemStore()
	gift := seedGift(st)
	handoff := "Recipient loves fragrant daiginjo and drinks it chilled."

	_, user := buildPrompts(GiftContext{Gift: gift, HandoffSummary: &handoff})

	assert.Contains(t, user, handoff)
	assert.NotContains(t, user, defaultUserQuery)
}

func TestBuildPrompts_PreferencesFlattened(t *testing.T) {
	st := newMemStore()
	gift := seedGift(st)

	_, user := buildPrompts(GiftContext{
		Gift: gift,
		Preferences: map[string]any{
			"sweetness": "medium",
			"aroma":     "high",
			"avoid":     []any{"dry", "heavy"},
		},
	})

	assert.Contains(t, user, "aroma: high")
	assert.Contains(t, user, "sweetness: medium")
	assert.Contains(t, user, "dry / heavy")
}

func TestDescribeValue_Deterministic(t *testing.T) {
	value := map[string]any{"b": "2", "a": "1", "c": map[string]any{"z": "last", "y": "first"}}
	first := describeValue(value)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, describeValue(value))
	}
	assert.Equal(t, "a: 1, b: 2, c: y: first, z: last", first)
}

func TestDescribeValue_DropsEmptyValues(t *testing.T) {
	assert.Equal(t, "", describeValue(nil))
	assert.Equal(t, "", describeValue("   "))
	assert.Equal(t, "b: kept", describeValue(map[string]any{"a": "", "b": "kept"}))
}
