package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acadmin/internal/approval/models"
)

func TestLoadSeedEmbeddedDefaults(t *testing.T) {
	rules, err := LoadSeed("")
	require.NoError(t, err)
	require.NotEmpty(t, rules)

	keys := make(map[string]models.RuleConfig, len(rules))
	for _, r := range rules {
		keys[r.Key().String()] = r
	}
	degreeDelete, ok := keys["degree.delete"]
	require.True(t, ok)
	assert.True(t, degreeDelete.RequiresReason)
	assert.Equal(t, models.RuleEitherOne, degreeDelete.ApprovalRule)
	assert.Equal(t, 1, degreeDelete.MinApprovers)
}

func TestParseSeed(t *testing.T) {
	t.Run("fills defaults and lower-cases keys", func(t *testing.T) {
		rules, err := ParseSeed([]byte("rules:\n  - object_type: Program\n    action: Delete\n"))
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "program.delete", rules[0].Key().String())
		assert.Equal(t, 1, rules[0].MinApprovers)
		assert.Equal(t, models.RuleEitherOne, rules[0].ApprovalRule)
	})

	t.Run("rejects unknown rule", func(t *testing.T) {
		_, err := ParseSeed([]byte("rules:\n  - object_type: program\n    action: delete\n    approval_rule: majority\n"))
		assert.Error(t, err)
	})

	t.Run("rejects duplicate keys", func(t *testing.T) {
		_, err := ParseSeed([]byte("rules:\n  - {object_type: a, action: b}\n  - {object_type: A, action: B}\n"))
		assert.ErrorContains(t, err, "duplicate")
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		_, err := ParseSeed([]byte("rules:\n  - {object_type: a, action: b, quorum: 3}\n"))
		assert.Error(t, err)
	})
}

func TestSeedSkipsExistingRows(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	existing := models.DefaultRuleConfig("degree", "delete")
	existing.MinApprovers = 3
	existing.ApprovalRule = models.RuleQuorum
	require.NoError(t, store.UpsertRuleConfig(ctx, &existing))

	rules := []models.RuleConfig{
		models.DefaultRuleConfig("degree", "delete"),
		models.DefaultRuleConfig("branch", "delete"),
	}
	n, err := Seed(ctx, store, rules)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	kept, err := store.FindRuleConfig(ctx, existing.Key())
	require.NoError(t, err)
	assert.Equal(t, 3, kept.MinApprovers)
}
