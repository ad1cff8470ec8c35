package googleEmbedding

import (
	"context"

	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/internal/rag/embedding"
	"github.com/avarma/deptqa/pkg/logger_i"
	"google.golang.org/genai"
)

var dimension int32 = config.EmbeddingOutputDimensionality

type client struct {
	genAi  *genai.Client
	model  string
	logger *logger_i.Logger
}

// NewGoogleEmbedder builds the embedding adapter once at startup; the caller
// owns its lifetime through ctx.
func NewGoogleEmbedder(ctx context.Context, modelName string, apikey string) (embedding.Embedder, error) {
	logger := logger_i.NewLogger("google_embedding")
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		logger.Error("Error creating Google Embedding client:", "error", err)
		return nil, err
	}
	logger.Info("Google Embedding client created", "model", modelName)
	return &client{genAi: c, model: modelName, logger: logger}, nil
}

func (c *client) Model() string {
	return c.model
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, config.EmbeddingCallTimeout)
	defer cancel()

	result, err := c.genAi.Models.EmbedContent(callCtx, c.model, genai.Text(query),
		&genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: "RETRIEVAL_QUERY"})
	if err != nil {
		c.logger.Error("Error getting embedding from Google", "error", err.Error())
		return nil, ragModel.ClassifyProviderError("google_embedding", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, &ragModel.ProviderError{Provider: "google_embedding", Kind: ragModel.ProviderMalformed}
	}
	return result.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, config.ProviderCallTimeout)
	defer cancel()

	res, err := c.genAi.Models.EmbedContent(callCtx, c.model, getContent(chunks),
		&genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: "RETRIEVAL_DOCUMENT"})
	if err != nil {
		c.logger.Error("Error getting batch embeddings from Google", "error", err.Error())
		return nil, ragModel.ClassifyProviderError("google_embedding", err)
	}
	if len(res.Embeddings) != len(chunks) {
		return nil, &ragModel.ProviderError{Provider: "google_embedding", Kind: ragModel.ProviderMalformed}
	}

	embeddingResults := make([][]float32, 0, len(res.Embeddings))
	for _, r := range res.Embeddings {
		embeddingResults = append(embeddingResults, r.Values)
	}
	return embeddingResults, nil
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}
