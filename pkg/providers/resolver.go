package providers

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultListTimeout bounds the model-listing call used for defaulting.
// Listing must degrade to an empty result, never hang the caller.
const DefaultListTimeout = 5 * time.Second

// Resolver turns a logical provider reference (a name or type hint from a
// flare config) into a concrete backend handle. The registry and factory are
// injected at construction; there is no global provider state.
type Resolver struct {
	registry    *Registry
	factory     BackendFactory
	listTimeout time.Duration
}

type ResolverOption func(*Resolver)

func WithListTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.listTimeout = d
	}
}

func NewResolver(registry *Registry, factory BackendFactory, options ...ResolverOption) *Resolver {
	ret := &Resolver{
		registry:    registry,
		factory:     factory,
		listTimeout: DefaultListTimeout,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve walks the fallback chain until a backend can be instantiated:
//
//  1. exact name match on nameHint
//  2. entries of typeHint, preferring an enabled one, else the first
//  3. the system-wide default provider
//  4. the first configured provider
//  5. fail with a ResolutionError
func (r *Resolver) Resolve(nameHint string, typeHint string) (Backend, *Entry, error) {
	backend, entry, err := r.ResolveExact(nameHint, typeHint)
	if err == nil {
		return backend, entry, nil
	}
	if !errors.Is(err, ErrResolution) {
		// a hint matched but the backend could not be instantiated
		return nil, nil, err
	}

	if entry, ok := r.registry.Default(); ok {
		return r.instantiate(entry)
	}

	if entry, ok := r.registry.First(); ok {
		return r.instantiate(entry)
	}

	return nil, nil, &ResolutionError{NameHint: nameHint, TypeHint: typeHint}
}

// ResolveExact resolves only an explicit hint match (steps 1 and 2 of the
// chain), never falling back to the default or first configured entry. A
// caller can interleave its own fallbacks between the hint match and the
// system-wide defaults.
func (r *Resolver) ResolveExact(nameHint string, typeHint string) (Backend, *Entry, error) {
	if entry, ok := r.registry.ByName(nameHint); ok {
		return r.instantiate(entry)
	}

	if typeHint != "" {
		candidates := r.registry.ByType(typeHint)
		if len(candidates) > 0 {
			selected := candidates[0]
			for _, c := range candidates {
				if c.Enabled {
					selected = c
					break
				}
			}
			return r.instantiate(selected)
		}
	}

	return nil, nil, &ResolutionError{NameHint: nameHint, TypeHint: typeHint}
}

// ResolveByID bypasses name/type matching and instantiates the entry with the
// given configuration id. Used as the orchestrator's secondary fallback when
// a flare's recorded provider name no longer resolves.
func (r *Resolver) ResolveByID(id string) (Backend, *Entry, error) {
	entry, ok := r.registry.ByID(id)
	if !ok {
		return nil, nil, errors.Wrapf(ErrResolution, "no provider with id %q", id)
	}
	return r.instantiate(entry)
}

func (r *Resolver) instantiate(entry *Entry) (Backend, *Entry, error) {
	backend, err := r.factory(entry)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "instantiating provider %q", entry.ID)
	}
	return backend, entry, nil
}

// ResolveModel picks the model for an entry: the configured default model if
// present, else the first model the backend lists. Listing is bounded by the
// resolver's timeout and a failure is logged, not raised; in that case the
// model stays empty and the decision is deferred to the caller.
func (r *Resolver) ResolveModel(ctx context.Context, entry *Entry) string {
	if entry == nil {
		return ""
	}
	if entry.DefaultModel != "" {
		return entry.DefaultModel
	}

	backend, err := r.factory(entry)
	if err != nil {
		log.Warn().Err(err).Str("provider", entry.ID).Msg("could not instantiate backend for model listing")
		return ""
	}

	listCtx, cancel := context.WithTimeout(ctx, r.listTimeout)
	defer cancel()

	models, err := backend.GetAvailableModels(listCtx)
	if err != nil {
		log.Warn().Err(err).Str("provider", entry.ID).Msg("model listing failed, leaving model empty")
		return ""
	}
	if len(models) == 0 {
		return ""
	}
	return models[0]
}
