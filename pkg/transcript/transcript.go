// Package transcript serializes conversation transcripts to a durable
// plain-text format and patches them back into their backing files. The
// format is a frontmatter block (date, last-modified, title, flare) followed
// by "## Role" blocks, each closed by an HTML comment carrying the message
// settings as JSON, so a transcript round-trips without losing routing
// metadata.
package transcript

import (
	"time"

	"github.com/google/uuid"

	"github.com/go-go-golems/flare/pkg/conversation"
)

type Transcript struct {
	// ID identifies the session in logs. It is never serialized.
	ID           uuid.UUID
	Created      int64
	LastModified int64
	Title        string
	Flare        string
	Provider     string
	Model        string
	Temperature  float64
	Messages     conversation.Conversation
}

func New(title string) *Transcript {
	now := time.Now().UnixMilli()
	return &Transcript{
		ID:           uuid.New(),
		Created:      now,
		LastModified: now,
		Title:        title,
	}
}

// AddMessage appends a message and refreshes the transcript's routing fields
// from the message settings, so the transcript header always reflects the
// most recent turn.
func (t *Transcript) AddMessage(m *conversation.Message) {
	t.Messages = append(t.Messages, m)
	t.LastModified = time.Now().UnixMilli()

	if m.Settings.Provider != "" {
		t.Provider = m.Settings.Provider
	}
	if m.Settings.Model != "" {
		t.Model = m.Settings.Model
	}
	if m.Settings.Temperature != 0 {
		t.Temperature = m.Settings.Temperature
	}
	if m.Settings.Flare != "" {
		t.Flare = m.Settings.Flare
	}
}

// ClearHistory drops all messages. The transcript itself stays alive; only a
// caller-initiated delete destroys the backing resource.
func (t *Transcript) ClearHistory() {
	t.Messages = nil
	t.LastModified = time.Now().UnixMilli()
}
