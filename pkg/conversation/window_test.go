package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(role Role, content string) *Message {
	return NewMessage(role, content)
}

func contents(messages Conversation) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Content)
	}
	return out
}

func TestApplyContextWindow_UnlimitedIsIdentity(t *testing.T) {
	messages := Conversation{
		msg(RoleSystem, "sys"),
		msg(RoleUser, "u1"),
		msg(RoleAssistant, "a1"),
		msg(RoleUser, "u2"),
	}

	result := ApplyContextWindow(messages, -1)

	assert.Equal(t, messages, result)
}

func TestApplyContextWindow_EmptyInput(t *testing.T) {
	result := ApplyContextWindow(Conversation{}, 2)
	assert.Empty(t, result)
}

func TestApplyContextWindow_RetainsLastPairs(t *testing.T) {
	messages := Conversation{
		msg(RoleUser, "u1"),
		msg(RoleAssistant, "a1"),
		msg(RoleUser, "u2"),
		msg(RoleAssistant, "a2"),
		msg(RoleUser, "u3"),
	}

	result := ApplyContextWindow(messages, 1)

	assert.Equal(t, []string{"u2", "a2", "u3"}, contents(result))
}

func TestApplyContextWindow_KeepsMostRecentSystemMessage(t *testing.T) {
	messages := Conversation{
		msg(RoleSystem, "old system"),
		msg(RoleUser, "u1"),
		msg(RoleAssistant, "a1"),
		msg(RoleSystem, "new system"),
		msg(RoleUser, "u2"),
	}

	result := ApplyContextWindow(messages, 5)

	require.NotEmpty(t, result)
	assert.Equal(t, RoleSystem, result[0].Role)
	assert.Equal(t, "new system", result[0].Content)
	for _, m := range result[1:] {
		assert.NotEqual(t, RoleSystem, m.Role)
	}
}

func TestApplyContextWindow_DropsUnansweredUserMessage(t *testing.T) {
	messages := Conversation{
		msg(RoleUser, "u1"),
		msg(RoleUser, "u2"),
		msg(RoleAssistant, "a2"),
		msg(RoleUser, "u3"),
	}

	result := ApplyContextWindow(messages, 5)

	// u1 never got a reply before u2 arrived, so it is flushed away
	assert.Equal(t, []string{"u2", "a2", "u3"}, contents(result))
}

func TestApplyContextWindow_TrailingPendingPairIsNotRetained(t *testing.T) {
	messages := Conversation{
		msg(RoleUser, "u1"),
		msg(RoleAssistant, "a1"),
		msg(RoleUser, "u2"),
		msg(RoleAssistant, "ignored-a"),
		msg(RoleAssistant, "a-current"),
	}

	result := ApplyContextWindow(messages, 5)

	// the last non-system message is the current one; u2/ignored-a form a
	// completed pair, u1/a1 stays as well
	assert.Equal(t, []string{"u1", "a1", "u2", "ignored-a", "a-current"}, contents(result))
}

func TestApplyContextWindow_NoCurrentMessage(t *testing.T) {
	messages := Conversation{
		msg(RoleSystem, "sys"),
	}

	result := ApplyContextWindow(messages, 1)

	assert.Equal(t, []string{"sys"}, contents(result))
}

func TestApplyContextWindow_WindowZeroKeepsOnlyCurrent(t *testing.T) {
	messages := Conversation{
		msg(RoleUser, "u1"),
		msg(RoleAssistant, "a1"),
		msg(RoleUser, "u2"),
	}

	result := ApplyContextWindow(messages, 0)

	assert.Equal(t, []string{"u2"}, contents(result))
}
