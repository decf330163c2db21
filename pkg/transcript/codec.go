package transcript

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/flare/pkg/conversation"
)

// TimeLayout is the frontmatter timestamp format: ISO-like, space-separated
// date and time, no fractional seconds.
const TimeLayout = "2006-01-02 15:04:05"

var (
	roleRe     = regexp.MustCompile(`^## (User|Assistant|System)$`)
	settingsRe = regexp.MustCompile(`^<!-- settings: (.*) -->$`)
)

// ParseError reports a malformed transcript block. Blocks failing to parse
// are skipped with a warning, never fatal; ParseError is only returned when
// the resource as a whole is unreadable (no frontmatter).
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("transcript parse error at line %d: %s", e.Line, e.Reason)
}

// Encode renders t to its durable text form.
func Encode(t *Transcript) string {
	var sb strings.Builder

	fm, err := yaml.Marshal(frontmatterFields{
		Date:         formatTime(t.Created),
		LastModified: formatTime(t.LastModified),
		Title:        t.Title,
		Flare:        t.Flare,
	})
	if err != nil {
		// the fields are plain strings, this cannot fail in practice
		log.Warn().Err(err).Msg("could not marshal transcript frontmatter")
		fm = []byte("title: untitled\n")
	}

	sb.WriteString("---\n")
	sb.Write(fm)
	sb.WriteString("---\n")

	for _, m := range t.Messages {
		settings := m.Settings
		if settings.Timestamp == 0 {
			settings.Timestamp = m.Timestamp
		}
		payload, err := json.Marshal(settings)
		if err != nil {
			// settings are plain scalars, this cannot fail in practice
			log.Warn().Err(err).Msg("could not marshal message settings")
			payload = []byte("{}")
		}

		sb.WriteString("\n## " + capitalizeRole(m.Role) + "\n")
		sb.WriteString(m.Content + "\n")
		sb.WriteString("<!-- settings: " + string(payload) + " -->\n")
	}

	return sb.String()
}

type frontmatterFields struct {
	Date         string `yaml:"date"`
	LastModified string `yaml:"last-modified"`
	Title        string `yaml:"title"`
	Flare        string `yaml:"flare,omitempty"`
}

// Decode parses a durable transcript. Malformed message blocks are skipped
// with a warning; a resource without a frontmatter block fails with a
// ParseError.
func Decode(content string) (*Transcript, error) {
	fm, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, err
	}

	var fields frontmatterFields
	if err := yaml.Unmarshal([]byte(fm), &fields); err != nil {
		return nil, &ParseError{Line: 1, Reason: err.Error()}
	}

	t := &Transcript{
		ID:           uuid.New(),
		Created:      parseTime(fields.Date),
		LastModified: parseTime(fields.LastModified),
		Title:        fields.Title,
		Flare:        fields.Flare,
	}

	lines := strings.Split(body, "\n")
	for i := 0; i < len(lines); {
		header := roleRe.FindStringSubmatch(lines[i])
		if header == nil {
			i++
			continue
		}

		role := conversation.Role(strings.ToLower(header[1]))
		var contentLines []string
		var settings *conversation.MessageSettings
		j := i + 1
		for ; j < len(lines); j++ {
			if sm := settingsRe.FindStringSubmatch(lines[j]); sm != nil {
				var s conversation.MessageSettings
				if err := json.Unmarshal([]byte(sm[1]), &s); err != nil {
					log.Warn().Err(err).Int("line", j+1).Msg("skipping transcript block with malformed settings")
				} else {
					settings = &s
				}
				j++
				break
			}
			if roleRe.MatchString(lines[j]) {
				break
			}
			contentLines = append(contentLines, lines[j])
		}

		if settings == nil {
			log.Warn().Int("line", i+1).Str("role", string(role)).Msg("skipping transcript block without settings")
			i = j
			continue
		}

		msg := &conversation.Message{
			Role:      role,
			Content:   strings.Join(contentLines, "\n"),
			Timestamp: settings.Timestamp,
			Settings:  *settings,
		}
		t.Messages = append(t.Messages, msg)
		i = j
	}

	// the transcript-level routing fields are not part of the frontmatter;
	// re-derive them from the most recent message
	if last := t.Messages.LastNonSystem(); last != nil {
		t.Provider = last.Settings.Provider
		t.Model = last.Settings.Model
		t.Temperature = last.Settings.Temperature
	}

	return t, nil
}

func splitFrontmatter(content string) (string, string, error) {
	lines := strings.SplitN(content, "\n", 2)
	if len(lines) < 2 || strings.TrimRight(lines[0], "\r") != "---" {
		return "", "", &ParseError{Line: 1, Reason: "missing frontmatter delimiter"}
	}

	rest := lines[1]
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		if strings.HasSuffix(rest, "\n---") {
			return rest[:len(rest)-len("\n---")], "", nil
		}
		return "", "", &ParseError{Line: 1, Reason: "unterminated frontmatter block"}
	}

	return rest[:idx], rest[idx+len("\n---\n"):], nil
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).Format(TimeLayout)
}

func parseTime(s string) int64 {
	if s == "" {
		return 0
	}
	ts, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		log.Warn().Str("value", s).Msg("could not parse transcript timestamp")
		return 0
	}
	return ts.UnixMilli()
}

func capitalizeRole(role conversation.Role) string {
	s := string(role)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
