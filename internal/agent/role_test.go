package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/coauthor/internal/remote"
)

func testCatalog(n int) []remote.RoleSpec {
	catalog := make([]remote.RoleSpec, n)
	for i := range catalog {
		catalog[i] = remote.RoleSpec{
			Key:    fmt.Sprintf("role-%d", i),
			Name:   fmt.Sprintf("Role %d", i),
			Prompt: fmt.Sprintf("prompt %d", i),
		}
	}
	return catalog
}

func TestHashIdentity_KnownValues(t *testing.T) {
	// 7*31 + 'a'(97) = 314
	assert.Equal(t, uint32(314), HashIdentity("a"))
	// 314*31 + 'b'(98) = 9832
	assert.Equal(t, uint32(9832), HashIdentity("ab"))
	assert.Equal(t, hashSeed, HashIdentity(""))
}

func TestHashIdentity_OrderSensitive(t *testing.T) {
	assert.NotEqual(t, HashIdentity("ab"), HashIdentity("ba"))
}

func TestHashIdentity_UsesUTF16Units(t *testing.T) {
	// U+1F600 is a surrogate pair in UTF-16: 0xD83D 0xDE00.
	want := (hashSeed*hashFactor+0xD83D)*hashFactor + 0xDE00
	assert.Equal(t, want, HashIdentity("\U0001F600"))
}

func TestAssignRole_Deterministic(t *testing.T) {
	catalog := testCatalog(5)
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("agent-%d-abc", i)
		first, firstIdx, ok := AssignRole(id, catalog)
		require.True(t, ok)
		for j := 0; j < 3; j++ {
			again, againIdx, _ := AssignRole(id, catalog)
			assert.Equal(t, first, again)
			assert.Equal(t, firstIdx, againIdx)
		}
	}
}

func TestAssignRole_InRange(t *testing.T) {
	for n := 1; n <= 7; n++ {
		catalog := testCatalog(n)
		for i := 0; i < 100; i++ {
			_, idx, ok := AssignRole(fmt.Sprintf("agent-%d", i), catalog)
			require.True(t, ok)
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, n)
		}
	}
}

func TestAssignRole_EmptyCatalog(t *testing.T) {
	_, idx, ok := AssignRole("agent-1", nil)
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
}

func TestAssignRole_MatchesHashModulo(t *testing.T) {
	catalog := testCatalog(3)
	role, idx, ok := AssignRole("a", catalog)
	require.True(t, ok)
	// 314 % 3 = 2
	assert.Equal(t, 2, idx)
	assert.Equal(t, "Role 2", role.Name)
}

// A catalog that shrinks while the agent runs may move the agent to a
// different role on the next sighting; the assignment is recomputed, not kept.
func TestAssignRole_ShrinkingCatalogReassigns(t *testing.T) {
	state := NewAgentState("a", DefaultRoleName, 3)

	state.ApplySnapshot(&remote.DocumentSnapshot{AgentRoles: testCatalog(5)})
	// 314 % 5 = 4
	assert.Equal(t, 4, state.RoleIndex)
	assert.Equal(t, "Role 4", state.RoleName)

	state.ApplySnapshot(&remote.DocumentSnapshot{AgentRoles: testCatalog(2)})
	// 314 % 2 = 0
	assert.Equal(t, 0, state.RoleIndex)
	assert.Equal(t, "Role 0", state.RoleName)
	assert.Equal(t, "prompt 0", state.RolePrompt)
}

func TestApplySnapshot_AbsentCatalogKeepsConfiguredRole(t *testing.T) {
	state := NewAgentState("agent-x", "copy editor", 1)
	state.ApplySnapshot(&remote.DocumentSnapshot{MaxEditsPerAgent: 4})

	assert.Equal(t, "copy editor", state.RoleName)
	assert.Empty(t, state.RolePrompt)
	assert.Equal(t, -1, state.RoleIndex)
	assert.Equal(t, 4, state.EditLimit)
}

func TestApplySnapshot_NameFallsBackToKey(t *testing.T) {
	state := NewAgentState("a", DefaultRoleName, 1)
	state.RolePrompt = "keep me"
	state.ApplySnapshot(&remote.DocumentSnapshot{AgentRoles: []remote.RoleSpec{{Key: "stylist"}}})

	assert.Equal(t, "stylist", state.RoleName)
	assert.Equal(t, "keep me", state.RolePrompt)
}

func TestNewAgentID_Format(t *testing.T) {
	id := NewAgentID()
	assert.Regexp(t, `^agent-\d+-[0-9a-f]{6}$`, id)
	assert.NotEqual(t, id, NewAgentID())
}
