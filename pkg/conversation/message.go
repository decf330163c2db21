package conversation

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// MessageSettings records how a message was produced: which provider and
// model serviced it, under which flare, and with which context policy.
// It carries enough metadata to re-derive the routing of a message without
// consulting flare configs, which are mutable over time.
type MessageSettings struct {
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	Temperature      float64 `json:"temperature"`
	Flare            string  `json:"flare,omitempty"`
	IsReasoningModel bool    `json:"isReasoningModel,omitempty"`
	ReasoningHeader  string  `json:"reasoningHeader,omitempty"`
	MaxTokens        int     `json:"maxTokens,omitempty"`
	ContextWindow    *int    `json:"contextWindow,omitempty"`
	HandoffContext   *int    `json:"handoffContext,omitempty"`
	Timestamp        int64   `json:"timestamp"`
}

// Message is a single entry in a conversation transcript. Ordering is
// insertion order; Timestamp is part of the persistence dedup key, not a
// sorting key.
type Message struct {
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Timestamp int64           `json:"timestamp"`
	Settings  MessageSettings `json:"settings"`
}

type MessageOption func(*Message)

func WithTimestamp(ts int64) MessageOption {
	return func(m *Message) {
		m.Timestamp = ts
		m.Settings.Timestamp = ts
	}
}

func WithSettings(settings MessageSettings) MessageOption {
	return func(m *Message) {
		m.Settings = settings
		if m.Settings.Timestamp == 0 {
			m.Settings.Timestamp = m.Timestamp
		}
	}
}

func NewMessage(role Role, content string, options ...MessageOption) *Message {
	ts := time.Now().UnixMilli()
	ret := &Message{
		Role:      role,
		Content:   content,
		Timestamp: ts,
		Settings:  MessageSettings{Timestamp: ts},
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

// DedupKey is the stability key used when patching a persisted transcript.
// It is role + timestamp + content length, not a content hash, so two
// distinct messages sharing all three collide. This matches the historical
// persistence behavior and must not be changed without migrating stored
// transcripts.
func (m *Message) DedupKey() string {
	return fmt.Sprintf("%s-%d-%d", m.Role, m.Timestamp, len(m.Content))
}

type Conversation []*Message

// GetSinglePrompt concatenates the chat messages into a single prompt string,
// used by auxiliary flows such as title generation.
func (messages Conversation) GetSinglePrompt() string {
	if len(messages) == 0 {
		return ""
	}

	if len(messages) == 1 {
		return messages[0].Content
	}

	var sb strings.Builder
	for _, message := range messages {
		sb.WriteString(fmt.Sprintf("[%s]: %s\n", message.Role, message.Content))
	}

	return sb.String()
}

// LastNonSystem returns the most recent message that is not a system
// message, or nil.
func (messages Conversation) LastNonSystem() *Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != RoleSystem {
			return messages[i]
		}
	}
	return nil
}
