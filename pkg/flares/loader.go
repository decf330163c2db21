package flares

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/flare/pkg/providers"
)

// Loader reads flare configs from a directory of frontmattered text files,
// one per flare, named "<flare>.md". The provider registry and resolver are
// injected so model defaulting can consult the configured backends.
type Loader struct {
	dir      string
	registry *providers.Registry
	resolver *providers.Resolver
}

func NewLoader(dir string, registry *providers.Registry, resolver *providers.Resolver) *Loader {
	return &Loader{
		dir:      dir,
		registry: registry,
		resolver: resolver,
	}
}

// List returns the names of all flares that have a backing resource, sorted.
func (l *Loader) List() []string {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		log.Debug().Err(err).Str("dir", l.dir).Msg("could not list flare directory")
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".md"))
	}
	sort.Strings(names)
	return names
}

// Load reads the flare named name. A missing resource synthesizes a default
// config; a resource without frontmatter is a ConfigError. All optional
// frontmatter fields get explicit defaults.
func (l *Loader) Load(ctx context.Context, name string) (*Config, error) {
	data, err := os.ReadFile(l.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return l.Default(ctx, name), nil
		}
		return nil, &ConfigError{Name: name, Reason: err.Error()}
	}

	cfg := &Config{
		Name:            name,
		Temperature:     DefaultTemperature,
		ContextWindow:   UnlimitedContext,
		HandoffContext:  UnlimitedContext,
		ReasoningHeader: DefaultReasoningHeader,
		Enabled:         true,
	}

	body, err := frontmatter.MustParse(bytes.NewReader(data), cfg)
	if err != nil {
		return nil, &ConfigError{Name: name, Reason: err.Error()}
	}

	cfg.SystemPrompt = string(body)
	return cfg, nil
}

// Default synthesizes the built-in flare config used when no resource backs
// name: first configured provider, model resolved through the provider's
// listing when no default model is configured, unlimited context windows.
func (l *Loader) Default(ctx context.Context, name string) *Config {
	cfg := &Config{
		Name:            name,
		Temperature:     DefaultTemperature,
		ContextWindow:   UnlimitedContext,
		HandoffContext:  UnlimitedContext,
		ReasoningHeader: DefaultReasoningHeader,
		Enabled:         true,
		SystemPrompt:    DefaultSystemPrompt,
	}

	entry, ok := l.registry.First()
	if !ok {
		log.Warn().Str("flare", name).Msg("no providers configured, default flare has no provider")
		return cfg
	}

	cfg.Provider = entry.ID
	cfg.ProviderName = entry.Name
	cfg.ProviderType = entry.Type
	cfg.Model = l.resolver.ResolveModel(ctx, entry)
	return cfg
}

// Save writes cfg back to its resource, frontmatter first, system prompt as
// the body. The frontmatter goes through the yaml encoder so free-text
// fields (descriptions, headers) survive a round trip unescaped.
func (l *Loader) Save(cfg *Config) error {
	fm, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrapf(err, "marshalling flare %q", cfg.Name)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(fm)
	sb.WriteString("---\n")
	sb.WriteString(cfg.SystemPrompt)

	return os.WriteFile(l.path(cfg.Name), []byte(sb.String()), 0o644)
}

func (l *Loader) path(name string) string {
	return filepath.Join(l.dir, name+".md")
}
