package answer

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/propdoc-io/propdoc/internal/query"
)

// OpenAISynthesizer implements Synthesizer using the Chat Completions API.
type OpenAISynthesizer struct {
	client *openai.Client
	model  string
}

// NewOpenAISynthesizer creates a synthesizer with the given API key and
// chat model.
func NewOpenAISynthesizer(apiKey, model string) *OpenAISynthesizer {
	return &OpenAISynthesizer{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, question string, bundle *query.ContextBundle) (*Answer, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: RenderContext(bundle) + "\nQUESTION: " + question},
		},
		Temperature: 0.1,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &Answer{
		Text:         content,
		Attributions: Attributions(bundle),
		Model:        resp.Model,
	}, nil
}
