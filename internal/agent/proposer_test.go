package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/coauthor/internal/llm"
	"github.com/dusk-indust/coauthor/internal/remote"
	"github.com/dusk-indust/coauthor/internal/retry"
)

func noSleepPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func TestBuildPrompt_EmbedsRoleAndContext(t *testing.T) {
	p := BuildPrompt("Hello world", "[Critic] a: more detail", remote.RoleSpec{Name: "Historian", Prompt: "Add dates."})

	assert.Contains(t, p.System, `"Historian"`)
	assert.Contains(t, p.System, "Role focus: Add dates.")
	assert.Contains(t, p.System, `"operation": "insert" | "replace" | "delete"`)
	assert.Contains(t, p.User, "Current document:\nHello world")
	assert.Contains(t, p.User, "Recent chat:\n[Critic] a: more detail")
}

func TestBuildPrompt_DefaultFocus(t *testing.T) {
	p := BuildPrompt("x", NoMessagesPlaceholder, remote.RoleSpec{Name: DefaultRoleName})
	assert.Contains(t, p.System, "Role focus: "+DefaultRolePrompt)
	assert.Contains(t, p.User, NoMessagesPlaceholder)
}

func TestProposer_Propose(t *testing.T) {
	model := llm.NewMock(llm.Reply{
		Content: `{"operation":"insert","anchor":"world","position":"after","new_text":"!","reasoning":"emphasis"}`,
		Tokens:  88,
	})
	prop := NewProposer(model, noSleepPolicy(3), nil)

	p, err := prop.Propose(context.Background(), "Hello world", NoMessagesPlaceholder, remote.RoleSpec{Name: "Editor"})
	require.NoError(t, err)
	assert.Equal(t, remote.OpInsert, p.Edit.Operation())
	assert.Equal(t, 88, p.TokensUsed)
	require.Len(t, model.Prompts(), 1)
}

func TestProposer_RetriesModelFailures(t *testing.T) {
	model := llm.NewMock(
		llm.Reply{Err: errors.New("502 bad gateway")},
		llm.Reply{Content: `{"operation":"delete","anchor":"x"}`, Tokens: 5},
	)
	prop := NewProposer(model, noSleepPolicy(3), nil)

	p, err := prop.Propose(context.Background(), "x", NoMessagesPlaceholder, remote.RoleSpec{})
	require.NoError(t, err)
	assert.Equal(t, remote.OpDelete, p.Edit.Operation())
	assert.Len(t, model.Prompts(), 2)
}

func TestProposer_DecodeFailureIsNotRetried(t *testing.T) {
	model := llm.NewMock(
		llm.Reply{Content: "Sure! Here is an edit."},
		llm.Reply{Content: `{"operation":"delete","anchor":"x"}`},
	)
	prop := NewProposer(model, noSleepPolicy(3), nil)

	p, err := prop.Propose(context.Background(), "x", NoMessagesPlaceholder, remote.RoleSpec{})
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrMalformedProposal)
	assert.Len(t, model.Prompts(), 1)
}

func TestProposer_UnknownOperationIsError(t *testing.T) {
	model := llm.NewMock(llm.Reply{Content: `{"operation":"merge","anchor":"x","new_text":"y"}`})
	prop := NewProposer(model, noSleepPolicy(1), nil)

	_, err := prop.Propose(context.Background(), "x", NoMessagesPlaceholder, remote.RoleSpec{})
	assert.ErrorIs(t, err, ErrUnknownOperation)
}
