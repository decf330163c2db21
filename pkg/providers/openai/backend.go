// Package openai provides the reference Backend implementation on top of the
// OpenAI chat completion API. Any OpenAI-compatible endpoint works by setting
// the entry's base URL (ollama, llama.cpp, vllm and friends expose one).
package openai

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/flare/pkg/conversation"
	"github.com/go-go-golems/flare/pkg/providers"
)

type Backend struct {
	client *go_openai.Client

	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ providers.Backend = (*Backend)(nil)

func New(entry *providers.Entry) (*Backend, error) {
	if entry == nil {
		return nil, errors.New("provider entry is required")
	}
	if entry.APIKey == "" && entry.BaseURL == "" {
		return nil, errors.Errorf("provider %q has neither an API key nor a base URL", entry.ID)
	}

	config := go_openai.DefaultConfig(entry.APIKey)
	if entry.BaseURL != "" {
		config.BaseURL = entry.BaseURL
	}

	return &Backend{client: go_openai.NewClientWithConfig(config)}, nil
}

// Factory adapts New to the providers.BackendFactory signature.
func Factory(entry *providers.Entry) (providers.Backend, error) {
	return New(entry)
}

func (b *Backend) SendMessage(ctx context.Context, content string, opts providers.SendOptions) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.cancel = nil
		b.mu.Unlock()
	}()

	req := go_openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    buildMessages(content, opts),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
		Stream:      opts.Stream,
	}

	log.Debug().
		Str("model", opts.Model).
		Int("history_len", len(opts.History)).
		Bool("stream", opts.Stream).
		Msg("sending chat completion request")

	if opts.Stream {
		return b.sendStreaming(ctx, req, opts.OnToken)
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *Backend) sendStreaming(ctx context.Context, req go_openai.ChatCompletionRequest, onToken func(string)) (string, error) {
	stream, err := b.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var full []byte
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full = append(full, delta...)
		if onToken != nil {
			onToken(delta)
		}
	}

	return string(full), nil
}

func (b *Backend) GetAvailableModels(ctx context.Context) ([]string, error) {
	list, err := b.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	models := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, m.ID)
	}
	return models, nil
}

func (b *Backend) CancelRequest() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
}

func buildMessages(content string, opts providers.SendOptions) []go_openai.ChatCompletionMessage {
	out := make([]go_openai.ChatCompletionMessage, 0, len(opts.History)+2)
	if opts.SystemPrompt != "" {
		out = append(out, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}
	for _, m := range opts.History {
		// the system prompt is passed explicitly; skip stale system entries
		if m.Role == conversation.RoleSystem {
			continue
		}
		out = append(out, go_openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	out = append(out, go_openai.ChatCompletionMessage{
		Role:    go_openai.ChatMessageRoleUser,
		Content: content,
	})
	return out
}
