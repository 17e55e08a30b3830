package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medscrub/internal/dataset"
)

// namedRule is a minimal rule for registry tests
type namedRule struct {
	BaseRule
}

func (r *namedRule) Apply(ctx context.Context, tbl *dataset.Table, rpt *Report) error {
	return nil
}

func newNamedRule(id string) *namedRule {
	return &namedRule{BaseRule: NewBaseRule(id, id, nil)}
}

func TestRegistryRegister(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr string
	}{
		{
			name: "valid rule",
			rule: newNamedRule("dedup"),
		},
		{
			name:    "nil rule",
			rule:    nil,
			wantErr: "nil rule",
		},
		{
			name:    "empty rule ID",
			rule:    newNamedRule(""),
			wantErr: "cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			err := registry.Register(tt.rule)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, registry.Has(tt.rule.ID()))
		})
	}
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(newNamedRule("dedup")))
	err := registry.Register(newNamedRule("dedup"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Equal(t, 1, registry.Count())
}

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	registry := NewRegistry()

	ids := []string{"dedup", "text_normalize_name", "categorical_validate_gender", "impute_missing"}
	for _, id := range ids {
		require.NoError(t, registry.Register(newNamedRule(id)))
	}

	assert.Equal(t, ids, registry.ListIDs())

	rules := registry.List()
	require.Len(t, rules, len(ids))
	for i, rule := range rules {
		assert.Equal(t, ids[i], rule.ID())
	}
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newNamedRule("dedup")))

	rule, err := registry.Get("dedup")
	require.NoError(t, err)
	assert.Equal(t, "dedup", rule.ID())

	_, err = registry.Get("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRegistryClear(t *testing.T) {
	registry := NewRegistry()
	for i := 0; i < 3; i++ {
		require.NoError(t, registry.Register(newNamedRule(fmt.Sprintf("rule_%d", i))))
	}
	require.Equal(t, 3, registry.Count())

	registry.Clear()

	assert.Equal(t, 0, registry.Count())
	assert.Empty(t, registry.ListIDs())
	assert.False(t, registry.Has("rule_0"))
}

func TestListIDsReturnsCopy(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newNamedRule("dedup")))

	ids := registry.ListIDs()
	ids[0] = "mutated"

	assert.Equal(t, []string{"dedup"}, registry.ListIDs())
}
