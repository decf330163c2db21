package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyHandoffContext_UnlimitedKeepsAllPairs(t *testing.T) {
	messages := Conversation{
		msg(RoleSystem, "sys"),
		msg(RoleUser, "u1"),
		msg(RoleAssistant, "a1"),
		msg(RoleUser, "u2"),
		msg(RoleAssistant, "a2"),
		msg(RoleUser, "u3"),
	}

	result := ApplyHandoffContext(messages, -1)

	assert.Equal(t, []string{"sys", "u1", "a1", "u2", "a2", "u3"}, contents(result))
}

func TestApplyHandoffContext_TrimsToLastPairs(t *testing.T) {
	messages := Conversation{
		msg(RoleSystem, "sys"),
		msg(RoleUser, "u1"),
		msg(RoleAssistant, "a1"),
		msg(RoleUser, "u2"),
		msg(RoleAssistant, "a2"),
		msg(RoleUser, "u3"),
	}

	result := ApplyHandoffContext(messages, 1)

	assert.Equal(t, []string{"sys", "u2", "a2", "u3"}, contents(result))
}

func TestApplyHandoffContext_SystemAlwaysIncluded(t *testing.T) {
	messages := Conversation{
		msg(RoleUser, "u1"),
		msg(RoleAssistant, "a1"),
		msg(RoleSystem, "sys"),
		msg(RoleUser, "u2"),
	}

	result := ApplyHandoffContext(messages, 0)

	require.NotEmpty(t, result)
	assert.Equal(t, []string{"sys", "u2"}, contents(result))
}

func TestApplyHandoffContext_KeepsUnterminatedPair(t *testing.T) {
	// adjacency lookahead: u1 is followed by another user message, so it
	// stays as a single-element pair instead of being flushed away
	messages := Conversation{
		msg(RoleUser, "u1"),
		msg(RoleUser, "u2"),
		msg(RoleAssistant, "a2"),
		msg(RoleUser, "u3"),
	}

	result := ApplyHandoffContext(messages, -1)

	assert.Equal(t, []string{"u1", "u2", "a2", "u3"}, contents(result))
}

func TestApplyHandoffContext_DropsStrayAssistantEvenUnlimited(t *testing.T) {
	// -1 skips trimming but the pairing/reassembly path still runs, so an
	// assistant message with no preceding user is dropped
	messages := Conversation{
		msg(RoleAssistant, "stray"),
		msg(RoleUser, "u1"),
		msg(RoleAssistant, "a1"),
		msg(RoleUser, "u2"),
	}

	result := ApplyHandoffContext(messages, -1)

	assert.Equal(t, []string{"u1", "a1", "u2"}, contents(result))
}

func TestApplyHandoffContext_Empty(t *testing.T) {
	result := ApplyHandoffContext(Conversation{}, 2)
	assert.Empty(t, result)
}

func TestPairingAlgorithmsDiverge(t *testing.T) {
	// consecutive user messages: the windower flushes the unanswered pair,
	// the handoff composer keeps it
	messages := Conversation{
		msg(RoleUser, "u1"),
		msg(RoleUser, "u2"),
		msg(RoleAssistant, "a2"),
		msg(RoleUser, "u3"),
	}

	windowed := ApplyContextWindow(messages, 10)
	handoff := ApplyHandoffContext(messages, -1)

	assert.Equal(t, []string{"u2", "a2", "u3"}, contents(windowed))
	assert.Equal(t, []string{"u1", "u2", "a2", "u3"}, contents(handoff))
}
