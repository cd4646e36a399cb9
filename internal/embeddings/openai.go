package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const maxBatchSize = 100

// OpenAIModel represents a supported OpenAI embedding model.
type OpenAIModel string

const (
	ModelTextEmbedding3Small OpenAIModel = "text-embedding-3-small"
	ModelTextEmbedding3Large OpenAIModel = "text-embedding-3-large"
)

func (m OpenAIModel) dimensions() int {
	switch m {
	case ModelTextEmbedding3Small:
		return 1536
	case ModelTextEmbedding3Large:
		return 3072
	default:
		return 1536
	}
}

// OpenAIEmbedder generates embeddings using OpenAI's API, retrying
// transient failures with exponential backoff.
type OpenAIEmbedder struct {
	client *openai.Client
	model  OpenAIModel
	retry  RetryConfig
}

// NewOpenAIEmbedder creates an OpenAI embedder. maxAttempts bounds the
// retries per batch; zero means the default.
func NewOpenAIEmbedder(apiKey string, model OpenAIModel, maxAttempts int) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
		retry:  RetryConfig{MaxAttempts: maxAttempts},
	}
}

func (e *OpenAIEmbedder) Name() string {
	return string(e.model)
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.model.dimensions()
}

// Embed generates embeddings, batching up to maxBatchSize texts per call.
// A batch that keeps failing fails the whole operation; callers decide
// whether the document lands in a failed state or gets re-queued.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		var vectors [][]float32
		err := retry(ctx, e.retry, func() error {
			resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: batch,
				Model: openai.EmbeddingModel(e.model),
			})
			if err != nil {
				return classify(fmt.Errorf("openai embedding request failed: %w", err))
			}
			if len(resp.Data) != len(batch) {
				return fmt.Errorf("openai returned %d embeddings, expected %d", len(resp.Data), len(batch))
			}
			vectors = vectors[:0]
			for _, emb := range resp.Data {
				vectors = append(vectors, emb.Embedding)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}
