package openai

import (
	"testing"

	go_openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/flare/pkg/conversation"
	"github.com/go-go-golems/flare/pkg/providers"
)

func TestNew_RequiresKeyOrBaseURL(t *testing.T) {
	_, err := New(&providers.Entry{ID: "p1"})
	require.Error(t, err)

	_, err = New(&providers.Entry{ID: "p1", BaseURL: "http://localhost:11434/v1"})
	require.NoError(t, err)

	_, err = New(nil)
	require.Error(t, err)
}

func TestBuildMessages(t *testing.T) {
	history := conversation.Conversation{
		conversation.NewMessage(conversation.RoleSystem, "stale system"),
		conversation.NewMessage(conversation.RoleUser, "hi"),
		conversation.NewMessage(conversation.RoleAssistant, "hello"),
	}

	msgs := buildMessages("how are you", providers.SendOptions{
		SystemPrompt: "be helpful",
		History:      history,
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, go_openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, "be helpful", msgs[0].Content)
	assert.Equal(t, go_openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, go_openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, go_openai.ChatMessageRoleUser, msgs[3].Role)
	assert.Equal(t, "how are you", msgs[3].Content)
}

func TestBuildMessages_NoSystemPrompt(t *testing.T) {
	msgs := buildMessages("q", providers.SendOptions{})

	require.Len(t, msgs, 1)
	assert.Equal(t, go_openai.ChatMessageRoleUser, msgs[0].Role)
}
