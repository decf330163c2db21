package transcript

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Store persists transcripts as one file per transcript under dir. There is
// no locking: Save re-reads the current file content immediately before
// patching to minimize races with concurrent external edits. The target
// deployment is single-writer-at-a-time.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save patches the transcript into its backing file. Messages already
// present on disk are kept; messages of t not yet present are appended,
// identified by the role+timestamp+length dedup key. Frontmatter fields are
// taken from t.
func (s *Store) Save(t *Transcript) error {
	path := s.path(t.Title)

	out := t
	if data, err := os.ReadFile(path); err == nil {
		existing, derr := Decode(string(data))
		if derr != nil {
			log.Warn().Err(derr).Str("path", path).Msg("existing transcript unreadable, overwriting")
		} else {
			out = merge(existing, t)
		}
	}

	return s.Overwrite(out)
}

// Overwrite replaces the backing file with t's serialized form, skipping the
// read-modify-write patch. Used after destructive mutations such as
// ClearHistory, where patching would resurrect dropped messages.
func (s *Store) Overwrite(t *Transcript) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "creating transcript directory")
	}
	path := s.path(t.Title)
	if err := os.WriteFile(path, []byte(Encode(t)), 0o644); err != nil {
		return errors.Wrapf(err, "writing transcript %q", t.Title)
	}
	return nil
}

func (s *Store) Load(title string) (*Transcript, error) {
	data, err := os.ReadFile(s.path(title))
	if err != nil {
		return nil, errors.Wrapf(err, "reading transcript %q", title)
	}
	return Decode(string(data))
}

func (s *Store) Delete(title string) error {
	err := os.Remove(s.path(title))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "deleting transcript %q", title)
	}
	return nil
}

// List returns the titles of all stored transcripts, sorted.
func (s *Store) List() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	var titles []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		titles = append(titles, strings.TrimSuffix(e.Name(), ".md"))
	}
	sort.Strings(titles)
	return titles
}

func (s *Store) path(title string) string {
	return filepath.Join(s.dir, sanitizeTitle(title)+".md")
}

// sanitizeTitle keeps titles usable as file names without renaming the
// common case.
func sanitizeTitle(title string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\x00", "")
	out := strings.TrimSpace(replacer.Replace(title))
	if out == "" {
		return "untitled"
	}
	return out
}

// merge starts from the messages already on disk and appends the messages of
// incoming whose dedup key is not present yet. Two distinct messages sharing
// role, timestamp and content length collide; that is the historical
// behavior and is kept.
func merge(existing *Transcript, incoming *Transcript) *Transcript {
	seen := map[string]bool{}
	for _, m := range existing.Messages {
		seen[m.DedupKey()] = true
	}

	out := *incoming
	out.Messages = existing.Messages[:len(existing.Messages):len(existing.Messages)]
	for _, m := range incoming.Messages {
		if seen[m.DedupKey()] {
			continue
		}
		out.Messages = append(out.Messages, m)
	}
	return &out
}
