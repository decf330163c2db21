package flares

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/flare/pkg/providers"
)

type stubBackend struct {
	models []string
}

func (s *stubBackend) SendMessage(ctx context.Context, content string, opts providers.SendOptions) (string, error) {
	return "", nil
}

func (s *stubBackend) GetAvailableModels(ctx context.Context) ([]string, error) {
	return s.models, nil
}

func (s *stubBackend) CancelRequest() {}

func testLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	registry := providers.NewRegistry([]*providers.Entry{
		{ID: "p1", Name: "Local", Type: "openai", Enabled: true},
	}, "p1")
	resolver := providers.NewResolver(registry, func(entry *providers.Entry) (providers.Backend, error) {
		return &stubBackend{models: []string{"listed-model"}}, nil
	})
	return NewLoader(dir, registry, resolver), dir
}

func writeFlare(t *testing.T, dir string, name string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".md"), []byte(content), 0o644))
}

func TestLoad_FullResource(t *testing.T) {
	loader, dir := testLoader(t)
	writeFlare(t, dir, "scholar", `---
provider: p1
providerName: Local
providerType: openai
model: gpt-4
temperature: 0.3
maxTokens: 2048
contextWindow: 4
handoffContext: 2
stream: true
isReasoningModel: true
reasoningHeader: "<reasoning>"
enabled: false
---
You are a meticulous scholar.`)

	cfg, err := loader.Load(context.Background(), "scholar")

	require.NoError(t, err)
	assert.Equal(t, "scholar", cfg.Name)
	assert.Equal(t, "p1", cfg.Provider)
	assert.Equal(t, "Local", cfg.ProviderName)
	assert.Equal(t, "openai", cfg.ProviderType)
	assert.Equal(t, "gpt-4", cfg.Model)
	assert.Equal(t, 0.3, cfg.Temperature)
	assert.Equal(t, 2048, cfg.MaxTokens)
	assert.Equal(t, 4, cfg.ContextWindow)
	assert.Equal(t, 2, cfg.HandoffContext)
	assert.True(t, cfg.Stream)
	assert.True(t, cfg.IsReasoningModel)
	assert.Equal(t, "<reasoning>", cfg.ReasoningHeader)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "You are a meticulous scholar.", cfg.SystemPrompt)
}

func TestLoad_DefaultsForOptionalFields(t *testing.T) {
	loader, dir := testLoader(t)
	writeFlare(t, dir, "minimal", `---
provider: p1
model: gpt-4
---
prompt`)

	cfg, err := loader.Load(context.Background(), "minimal")

	require.NoError(t, err)
	assert.Equal(t, DefaultTemperature, cfg.Temperature)
	assert.Equal(t, UnlimitedContext, cfg.ContextWindow)
	assert.Equal(t, UnlimitedContext, cfg.HandoffContext)
	assert.Equal(t, DefaultReasoningHeader, cfg.ReasoningHeader)
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.Stream)
}

func TestLoad_MissingResourceSynthesizesDefault(t *testing.T) {
	loader, _ := testLoader(t)

	cfg, err := loader.Load(context.Background(), "ghost")

	require.NoError(t, err)
	assert.Equal(t, "ghost", cfg.Name)
	assert.Equal(t, "p1", cfg.Provider)
	assert.Equal(t, "Local", cfg.ProviderName)
	assert.Equal(t, "listed-model", cfg.Model)
	assert.Equal(t, DefaultSystemPrompt, cfg.SystemPrompt)
	assert.Equal(t, UnlimitedContext, cfg.ContextWindow)
	assert.Equal(t, UnlimitedContext, cfg.HandoffContext)
	assert.False(t, cfg.Stream)
}

func TestLoad_NoFrontmatterIsConfigError(t *testing.T) {
	loader, dir := testLoader(t)
	writeFlare(t, dir, "broken", "just a prompt, no frontmatter")

	_, err := loader.Load(context.Background(), "broken")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestList(t *testing.T) {
	loader, dir := testLoader(t)
	writeFlare(t, dir, "b", "---\nprovider: p1\n---\n")
	writeFlare(t, dir, "a", "---\nprovider: p1\n---\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	assert.Equal(t, []string{"a", "b"}, loader.List())
}

func TestSaveRoundTrip(t *testing.T) {
	loader, _ := testLoader(t)
	cfg := &Config{
		Name:            "saved",
		Provider:        "p1",
		ProviderName:    "Local",
		ProviderType:    "openai",
		Model:           "gpt-4",
		Temperature:     0.5,
		ContextWindow:   3,
		HandoffContext:  UnlimitedContext,
		ReasoningHeader: DefaultReasoningHeader,
		Enabled:         true,
		SystemPrompt:    "Round trip prompt.",
	}

	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load(context.Background(), "saved")
	require.NoError(t, err)
	assert.Equal(t, cfg.Provider, loaded.Provider)
	assert.Equal(t, cfg.Model, loaded.Model)
	assert.Equal(t, cfg.Temperature, loaded.Temperature)
	assert.Equal(t, cfg.ContextWindow, loaded.ContextWindow)
	assert.Equal(t, cfg.HandoffContext, loaded.HandoffContext)
	assert.Equal(t, "Round trip prompt.", loaded.SystemPrompt)
}

func TestSaveRoundTrip_DescriptionWithColon(t *testing.T) {
	loader, _ := testLoader(t)
	cfg := &Config{
		Name:            "annotated",
		Provider:        "p1",
		ProviderName:    "Local",
		ProviderType:    "openai",
		Model:           "gpt-4",
		Description:     "Tutor: patient, step-by-step explanations",
		Temperature:     0.5,
		ContextWindow:   UnlimitedContext,
		HandoffContext:  UnlimitedContext,
		ReasoningHeader: DefaultReasoningHeader,
		Enabled:         true,
		SystemPrompt:    "Teach.",
	}

	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load(context.Background(), "annotated")
	require.NoError(t, err)
	assert.Equal(t, cfg.Description, loaded.Description)
	assert.Equal(t, "Teach.", loaded.SystemPrompt)
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Name: "orig", Model: "m", Temperature: 0.2}

	copied := cfg.Clone()
	copied.Model = "changed"

	assert.Equal(t, "m", cfg.Model)
	assert.Equal(t, "orig", copied.Name)
}
