package providers

// Entry is a single configured provider. ID is the stable configuration key;
// Name is the user-visible label flares reference; Type groups entries by
// transport family ("openai", "ollama", ...).
type Entry struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Type         string `yaml:"type" json:"type"`
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	DefaultModel string `yaml:"default_model,omitempty" json:"default_model,omitempty"`
	APIKey       string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// Registry is the explicit, injected set of configured providers. Order is
// configuration order and matters: the first entry is the fallback of last
// resort when no default is configured.
type Registry struct {
	entries   []*Entry
	defaultID string
}

func NewRegistry(entries []*Entry, defaultID string) *Registry {
	return &Registry{
		entries:   entries,
		defaultID: defaultID,
	}
}

func (r *Registry) Entries() []*Entry {
	return r.entries
}

func (r *Registry) ByID(id string) (*Entry, bool) {
	if id == "" {
		return nil, false
	}
	for _, e := range r.entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

func (r *Registry) ByName(name string) (*Entry, bool) {
	if name == "" {
		return nil, false
	}
	for _, e := range r.entries {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

func (r *Registry) ByType(providerType string) []*Entry {
	var out []*Entry
	for _, e := range r.entries {
		if e.Type == providerType {
			out = append(out, e)
		}
	}
	return out
}

// Default returns the system-wide default entry, if one is configured.
func (r *Registry) Default() (*Entry, bool) {
	return r.ByID(r.defaultID)
}

// First returns the first configured entry, if any.
func (r *Registry) First() (*Entry, bool) {
	if len(r.entries) == 0 {
		return nil, false
	}
	return r.entries[0], true
}
