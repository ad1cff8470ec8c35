package gemini

import (
	"context"

	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/internal/rag/llm"
	"github.com/avarma/deptqa/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

func NewGeminiProvider(ctx context.Context, apikey string, modelName string) (llm.Provider, error) {
	logger := logger_i.NewLogger("llm_gemini")
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
		return nil, err
	}
	logger.Info("Gemini client created", "model", modelName)
	return &llmClient{client: c, modelName: modelName, logger: logger}, nil
}

func (c *llmClient) Model() string {
	return c.modelName
}

func (c *llmClient) Generate(ctx context.Context, query string, contextTexts []string) (llm.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, config.ProviderCallTimeout)
	defer cancel()

	systemInstruction := &genai.Content{
		Parts: []*genai.Part{
			{Text: config.ModelContext},
		},
	}
	userPrompt := llm.BuildPrompt(query, contextTexts)

	temperature := config.ModelTemperature
	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       &temperature,
	}

	result, err := c.client.Models.GenerateContent(callCtx, c.modelName, genai.Text(userPrompt), contentConfig)
	if err != nil {
		c.logger.Error("Gemini generation failed", "error", err)
		return llm.Result{}, ragModel.ClassifyProviderError("gemini", err)
	}
	answer := result.Text()
	if answer == "" {
		return llm.Result{}, &ragModel.ProviderError{Provider: "gemini", Kind: ragModel.ProviderMalformed}
	}

	tokens := 0
	if result.UsageMetadata != nil {
		tokens = int(result.UsageMetadata.TotalTokenCount)
	}
	return llm.Result{Answer: answer, TokensUsed: tokens}, nil
}
