// Package flares loads and normalizes flare configurations. A flare is a
// named persona: a system prompt bound to a provider, a model and a
// context-management policy. Flares live as frontmattered text resources in
// a directory; a missing resource yields a usable built-in default instead
// of an error.
package flares

import (
	"github.com/huandu/go-clone"
)

// UnlimitedContext disables trimming for a context or handoff window.
const UnlimitedContext = -1

// DefaultTemperature is used when a flare resource omits temperature.
const DefaultTemperature = 0.7

// DefaultReasoningHeader is the opening tag assumed for reasoning models
// when a flare does not configure one.
const DefaultReasoningHeader = "<think>"

// DefaultSystemPrompt replaces an empty system prompt when a flare config is
// synthesized without a backing resource.
const DefaultSystemPrompt = "You are a helpful assistant."

// Config is one flare. Provider is the configuration id of the backing
// provider entry; ProviderName and ProviderType are the lookup hints handed
// to the resolver, kept separately because entries can be renamed while a
// flare still records the old identity.
type Config struct {
	Name             string  `yaml:"-"`
	Provider         string  `yaml:"provider"`
	ProviderName     string  `yaml:"providerName"`
	ProviderType     string  `yaml:"providerType"`
	Model            string  `yaml:"model"`
	Description      string  `yaml:"description,omitempty"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"maxTokens,omitempty"`
	ContextWindow    int     `yaml:"contextWindow"`
	HandoffContext   int     `yaml:"handoffContext"`
	Stream           bool    `yaml:"stream"`
	IsReasoningModel bool    `yaml:"isReasoningModel"`
	ReasoningHeader  string  `yaml:"reasoningHeader"`
	Enabled          bool    `yaml:"enabled"`
	SystemPrompt     string  `yaml:"-"`
}

func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	return clone.Clone(c).(*Config)
}
