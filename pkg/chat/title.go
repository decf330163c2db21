package chat

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/flare/pkg/conversation"
	"github.com/go-go-golems/flare/pkg/providers"
)

const titlePrompt = "Reply with a short title (at most eight words) for the following conversation. Reply with the title only, no quotes, no punctuation at the end."

// titleHistoryPairs bounds how much of the conversation the title prompt
// sees.
const titleHistoryPairs = 4

// RegenerateTitle asks the active flare's backend for a fresh transcript
// title, retrying up to the configured number of attempts with a fixed delay
// between them. The transcript is renamed on disk when autosave is enabled.
func (o *Orchestrator) RegenerateTitle(ctx context.Context) error {
	if o.current == nil || len(o.current.Messages) == 0 {
		return errors.New("no conversation to generate a title for")
	}

	cfg, err := o.loader.Load(ctx, o.activeFlareName())
	if err != nil {
		return err
	}

	backend, entry, err := o.resolveBackend(cfg)
	if err != nil {
		return err
	}

	model := cfg.Model
	if model == "" {
		model = o.resolver.ResolveModel(ctx, entry)
	}

	recent := conversation.ApplyContextWindow(append(conversation.Conversation(nil), o.current.Messages...), titleHistoryPairs)
	prompt := titlePrompt + "\n\n" + recent.GetSinglePrompt()

	var lastErr error
	for attempt := 1; attempt <= o.titleAttempts; attempt++ {
		title, err := backend.SendMessage(ctx, prompt, providers.SendOptions{
			Model:       model,
			Temperature: cfg.Temperature,
		})
		if err == nil {
			title = cleanTitle(title)
			if title != "" {
				return o.applyTitle(title)
			}
			lastErr = errors.New("backend returned an empty title")
		} else {
			if isCancellation(err) {
				return err
			}
			lastErr = err
		}

		log.Debug().Err(lastErr).Int("attempt", attempt).Msg("title generation attempt failed")

		if attempt == o.titleAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.titleDelay):
		}
	}

	return errors.Wrap(lastErr, "title regeneration failed")
}

// applyTitle renames the transcript. An unchanged title is an explicit
// early return, not an error.
func (o *Orchestrator) applyTitle(title string) error {
	if title == o.current.Title {
		return nil
	}

	oldTitle := o.current.Title
	o.current.Title = title

	if !o.autosave {
		return nil
	}
	if err := o.store.Save(o.current); err != nil {
		return err
	}
	return o.store.Delete(oldTitle)
}

func (o *Orchestrator) activeFlareName() string {
	if o.lastFlare != "" {
		return o.lastFlare
	}
	return o.defaultFlare
}

func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, "\"'")
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}
