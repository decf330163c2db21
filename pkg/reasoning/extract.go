// Package reasoning extracts hidden deliberation blocks from model output.
// Reasoning models wrap internal thinking in a configurable tag pair
// (canonically "<think>...</think>"); the user-facing response is whatever
// remains once those spans are removed.
package reasoning

import (
	"regexp"
	"strings"

	"github.com/go-go-golems/flare/pkg/conversation"
)

// DefaultHeader is the opening tag assumed when a flare does not configure
// its own.
const DefaultHeader = "<think>"

// ClosingTag derives the closing tag from an opening tag by replacing the
// first "<" with "</". "<think>" becomes "</think>".
func ClosingTag(header string) string {
	return strings.Replace(header, "<", "</", 1)
}

// Extract finds all non-overlapping, non-greedy header...closing spans in
// content, including spans crossing newlines. It returns the trimmed inner
// texts in document order and the remaining content with every matched span
// removed, trimmed. Malformed or absent tags degrade to no blocks and the
// original content; Extract never fails.
func Extract(content string, header string) ([]string, string) {
	if header == "" || !strings.Contains(header, "<") {
		return nil, content
	}

	closing := ClosingTag(header)
	pattern, err := regexp.Compile("(?s)" + regexp.QuoteMeta(header) + "(.*?)" + regexp.QuoteMeta(closing))
	if err != nil {
		return nil, content
	}

	matches := pattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil, content
	}

	blocks := make([]string, 0, len(matches))
	var response strings.Builder
	last := 0
	for _, m := range matches {
		blocks = append(blocks, strings.TrimSpace(content[m[2]:m[3]]))
		response.WriteString(content[last:m[0]])
		last = m[1]
	}
	response.WriteString(content[last:])

	return blocks, strings.TrimSpace(response.String())
}

// StripMessages replaces the content of every assistant message with its
// visible response part, discarding reasoning blocks. The effective header is
// the message's own settings.reasoningHeader, else defaultHeader. Non-assistant
// messages pass through unchanged. The input slice is not mutated.
func StripMessages(messages conversation.Conversation, defaultHeader string) conversation.Conversation {
	if defaultHeader == "" {
		defaultHeader = DefaultHeader
	}

	out := make(conversation.Conversation, 0, len(messages))
	for _, m := range messages {
		if m.Role != conversation.RoleAssistant {
			out = append(out, m)
			continue
		}

		header := m.Settings.ReasoningHeader
		if header == "" {
			header = defaultHeader
		}

		_, response := Extract(m.Content, header)
		stripped := *m
		stripped.Content = response
		out = append(out, &stripped)
	}

	return out
}
