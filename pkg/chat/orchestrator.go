// Package chat wires the conversation context engine together: one
// Orchestrator owns a transcript, resolves the active flare per incoming
// message, shapes history through windowing or handoff, refreshes the system
// message, calls the resolved backend and persists the outcome.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/flare/pkg/conversation"
	"github.com/go-go-golems/flare/pkg/flares"
	"github.com/go-go-golems/flare/pkg/providers"
	"github.com/go-go-golems/flare/pkg/reasoning"
	"github.com/go-go-golems/flare/pkg/transcript"
)

// StoppedMessage is the user-facing outcome of a cancelled backend call. A
// cancellation is a distinct termination, not a failure.
const StoppedMessage = "Stopped by user."

// unknownErrorMessage covers failures that carry no usable message.
const unknownErrorMessage = "Error: an unknown error occurred"

// Expander is the collaborator hook that expands text substitutions (note
// links, templates) inside system prompts before they are sent. The identity
// expander is used when none is injected.
type Expander func(string) string

// Options are the per-call overrides of HandleMessage.
type Options struct {
	// Flare selects the persona explicitly. Empty falls back to the last
	// used flare, then the configured default, then provider matching.
	Flare string
	// Provider and ProviderType request a persona bound to a specific
	// provider when no flare is named anywhere.
	Provider     string
	ProviderType string
	// Temperature overrides the flare's temperature for this call only.
	Temperature *float64
	// IsFlareSwitch forces or suppresses switch handling; nil auto-detects.
	IsFlareSwitch *bool
	// OnToken receives streaming output when the flare streams.
	OnToken func(string)
}

// Result is the outcome of one HandleMessage call. Failures are folded into
// Content with an "Error: " prefix; Stopped marks a user cancellation.
type Result struct {
	Content string
	Stopped bool
}

type Orchestrator struct {
	loader   *flares.Loader
	resolver *providers.Resolver
	store    *transcript.Store
	expand   Expander

	defaultFlare string
	autosave     bool

	titleAttempts int
	titleDelay    time.Duration

	current   *transcript.Transcript
	lastFlare string
}

type OrchestratorOption func(*Orchestrator)

func WithExpander(expand Expander) OrchestratorOption {
	return func(o *Orchestrator) {
		o.expand = expand
	}
}

func WithDefaultFlare(name string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.defaultFlare = name
	}
}

func WithAutosave(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.autosave = enabled
	}
}

func WithTitleRetry(attempts int, delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.titleAttempts = attempts
		o.titleDelay = delay
	}
}

func NewOrchestrator(loader *flares.Loader, resolver *providers.Resolver, store *transcript.Store, options ...OrchestratorOption) *Orchestrator {
	ret := &Orchestrator{
		loader:        loader,
		resolver:      resolver,
		store:         store,
		expand:        func(s string) string { return s },
		titleAttempts: 3,
		titleDelay:    time.Second,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Transcript returns the active transcript, or nil before the first message.
func (o *Orchestrator) Transcript() *transcript.Transcript {
	return o.current
}

// SetTranscript resumes an existing session. The last used flare is
// re-derived from the most recent non-system message.
func (o *Orchestrator) SetTranscript(t *transcript.Transcript) {
	o.current = t
	o.lastFlare = ""
	if t == nil {
		return
	}
	if last := t.Messages.LastNonSystem(); last != nil {
		o.lastFlare = last.Settings.Flare
	}
}

// ClearHistory drops all messages of the active session and overwrites the
// backing file so cleared messages cannot be patched back in.
func (o *Orchestrator) ClearHistory() error {
	if o.current == nil {
		return nil
	}
	o.current.ClearHistory()
	if !o.autosave {
		return nil
	}
	return o.store.Overwrite(o.current)
}

// Save persists the active session regardless of the autosave setting.
func (o *Orchestrator) Save() error {
	if o.current == nil {
		return nil
	}
	return o.store.Save(o.current)
}

// HandleMessage processes one incoming user message end to end. It never
// returns an error: failures become a Result whose Content carries an
// "Error: " prefix, and a cancelled backend call becomes a stopped Result.
func (o *Orchestrator) HandleMessage(ctx context.Context, text string, opts *Options) (result Result) {
	if opts == nil {
		opts = &Options{}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("handleMessage panicked")
			result = Result{Content: unknownErrorMessage}
		}
	}()

	res, err := o.handle(ctx, text, opts)
	if err != nil {
		if isCancellation(err) {
			log.Debug().Msg("backend call stopped by user")
			return Result{Content: StoppedMessage, Stopped: true}
		}
		log.Warn().Err(err).Msg("handleMessage failed")
		return Result{Content: "Error: " + err.Error()}
	}
	return res
}

func (o *Orchestrator) handle(ctx context.Context, text string, opts *Options) (Result, error) {
	name, err := o.resolveFlareName(ctx, opts)
	if err != nil {
		return Result{}, err
	}

	cfg, err := o.loader.Load(ctx, name)
	if err != nil {
		return Result{}, err
	}

	if o.current == nil {
		o.current = transcript.New(defaultTitle())
	}

	isSwitch := o.isFlareSwitch(cfg, opts)

	// System message policy: on a switch, or when no system message exists
	// yet, prior system messages are fully replaced, never appended to.
	if isSwitch || !hasSystemMessage(o.current.Messages) {
		o.replaceSystemMessage(cfg)
	}

	backend, entry, err := o.resolveBackend(cfg)
	if err != nil {
		return Result{}, err
	}

	model := cfg.Model
	if model == "" {
		model = o.resolver.ResolveModel(ctx, entry)
	}

	// zero is a legitimate temperature; absent values were already defaulted
	// by the loader
	temperature := cfg.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	settings := o.routingSettings(cfg, entry, model, temperature)

	userSettings := settings
	userSettings.Timestamp = time.Now().UnixMilli()
	userMsg := conversation.NewMessage(conversation.RoleUser, text,
		conversation.WithTimestamp(userSettings.Timestamp),
		conversation.WithSettings(userSettings))

	// the in-flight message is part of the shaped view: windowing treats
	// the last non-system message as current and excludes it from pairing
	history := o.shapeHistory(cfg, isSwitch, userMsg)
	if n := len(history); n > 0 && history[n-1] == userMsg {
		history = history[:n-1]
	}

	response, err := backend.SendMessage(ctx, text, providers.SendOptions{
		Model:        model,
		SystemPrompt: o.expand(cfg.SystemPrompt),
		History:      reasoning.StripMessages(history, cfg.ReasoningHeader),
		Temperature:  temperature,
		MaxTokens:    cfg.MaxTokens,
		Stream:       cfg.Stream,
		OnToken:      opts.OnToken,
	})
	if err != nil {
		return Result{}, err
	}

	o.current.AddMessage(userMsg)

	assistantSettings := settings
	assistantSettings.Timestamp = time.Now().UnixMilli()
	o.current.AddMessage(conversation.NewMessage(conversation.RoleAssistant, response,
		conversation.WithTimestamp(assistantSettings.Timestamp),
		conversation.WithSettings(assistantSettings)))

	o.lastFlare = cfg.Name

	if o.autosave {
		if err := o.store.Save(o.current); err != nil {
			log.Warn().Err(err).Str("title", o.current.Title).Msg("could not persist transcript")
		}
	}

	// the full tagged content is what gets persisted; a reasoning flare
	// only shows the visible response part
	if cfg.IsReasoningModel {
		_, visible := reasoning.Extract(response, cfg.ReasoningHeader)
		return Result{Content: visible}, nil
	}
	return Result{Content: response}, nil
}

// resolveFlareName picks the active flare: explicit option, last used,
// configured default, a flare matching the requested provider or type, first
// available, else fail.
func (o *Orchestrator) resolveFlareName(ctx context.Context, opts *Options) (string, error) {
	if opts.Flare != "" {
		return opts.Flare, nil
	}
	if o.lastFlare != "" {
		return o.lastFlare, nil
	}
	if o.defaultFlare != "" {
		return o.defaultFlare, nil
	}

	names := o.loader.List()

	if opts.Provider != "" || opts.ProviderType != "" {
		for _, n := range names {
			cfg, err := o.loader.Load(ctx, n)
			if err != nil {
				log.Debug().Err(err).Str("flare", n).Msg("skipping unreadable flare")
				continue
			}
			if opts.Provider != "" && cfg.ProviderName == opts.Provider {
				return n, nil
			}
			if opts.ProviderType != "" && cfg.ProviderType == opts.ProviderType {
				return n, nil
			}
		}
	}

	if len(names) > 0 {
		return names[0], nil
	}

	return "", errors.New("no flares available")
}

// isFlareSwitch reports whether this turn changes persona. Explicit option
// wins; an empty history is always a switch; otherwise the previous
// non-system message's recorded flare is compared against the new one.
func (o *Orchestrator) isFlareSwitch(cfg *flares.Config, opts *Options) bool {
	if opts.IsFlareSwitch != nil {
		return *opts.IsFlareSwitch
	}
	prev := o.current.Messages.LastNonSystem()
	if prev == nil {
		return true
	}
	return prev.Settings.Flare != cfg.Name
}

func (o *Orchestrator) shapeHistory(cfg *flares.Config, isSwitch bool, current *conversation.Message) conversation.Conversation {
	history := append(conversation.Conversation(nil), o.current.Messages...)
	if current != nil {
		history = append(history, current)
	}
	if isSwitch {
		return conversation.ApplyHandoffContext(history, cfg.HandoffContext)
	}
	return conversation.ApplyContextWindow(history, cfg.ContextWindow)
}

// replaceSystemMessage drops every existing system message and inserts a
// freshly composed one at index 0, tagged with the flare's routing metadata.
func (o *Orchestrator) replaceSystemMessage(cfg *flares.Config) {
	rest := make(conversation.Conversation, 0, len(o.current.Messages)+1)
	for _, m := range o.current.Messages {
		if m.Role == conversation.RoleSystem {
			continue
		}
		rest = append(rest, m)
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = flares.DefaultSystemPrompt
	}

	sys := conversation.NewMessage(conversation.RoleSystem, o.expand(prompt),
		conversation.WithSettings(conversation.MessageSettings{
			Provider:         cfg.Provider,
			Model:            cfg.Model,
			Temperature:      cfg.Temperature,
			Flare:            cfg.Name,
			IsReasoningModel: cfg.IsReasoningModel,
			ReasoningHeader:  cfg.ReasoningHeader,
		}))

	o.current.Messages = append(conversation.Conversation{sys}, rest...)
}

// resolveBackend resolves the flare's provider identity: an exact name or
// type match first, then the recorded provider id (entries can be renamed
// while a flare still records the old identity), then the system default
// chain.
func (o *Orchestrator) resolveBackend(cfg *flares.Config) (providers.Backend, *providers.Entry, error) {
	backend, entry, err := o.resolver.ResolveExact(cfg.ProviderName, cfg.ProviderType)
	if err == nil {
		return backend, entry, nil
	}

	if cfg.Provider != "" {
		if backend, entry, idErr := o.resolver.ResolveByID(cfg.Provider); idErr == nil {
			return backend, entry, nil
		}
	}

	return o.resolver.Resolve(cfg.ProviderName, cfg.ProviderType)
}

func (o *Orchestrator) routingSettings(cfg *flares.Config, entry *providers.Entry, model string, temperature float64) conversation.MessageSettings {
	settings := conversation.MessageSettings{
		Provider:         entry.ID,
		Model:            model,
		Temperature:      temperature,
		Flare:            cfg.Name,
		IsReasoningModel: cfg.IsReasoningModel,
		ReasoningHeader:  cfg.ReasoningHeader,
		MaxTokens:        cfg.MaxTokens,
	}
	if cfg.ContextWindow != flares.UnlimitedContext {
		cw := cfg.ContextWindow
		settings.ContextWindow = &cw
	}
	if cfg.HandoffContext != flares.UnlimitedContext {
		hc := cfg.HandoffContext
		settings.HandoffContext = &hc
	}
	return settings
}

func hasSystemMessage(messages conversation.Conversation) bool {
	for _, m := range messages {
		if m.Role == conversation.RoleSystem {
			return true
		}
	}
	return false
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

func defaultTitle() string {
	return fmt.Sprintf("New Conversation %s", time.Now().Format("2006-01-02 150405"))
}
