package openaiLLM

import (
	"context"
	"errors"

	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/customHttpClient"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/internal/rag/llm"
	"github.com/avarma/deptqa/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	client    openai.Client
	modelName string
	logger    *logger_i.Logger
}

// NewOpenAIProvider is the second strategy in the generation chain; it only
// sees traffic when the primary provider is down or rate limited.
func NewOpenAIProvider(apikey string, modelName string) llm.Provider {
	logger := logger_i.NewLogger("llm_openai")
	c := openai.NewClient(option.WithAPIKey(apikey), option.WithHTTPClient(customHttpClient.PooledClient()))
	logger.Info("OpenAI client created", "model", modelName)
	return &llmClient{client: c, modelName: modelName, logger: logger}
}

func (c *llmClient) Model() string {
	return c.modelName
}

func (c *llmClient) Generate(ctx context.Context, query string, contextTexts []string) (llm.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, config.ProviderCallTimeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(config.ModelContext),
			openai.UserMessage(llm.BuildPrompt(query, contextTexts)),
		},
	})
	if err != nil {
		c.logger.Error("OpenAI generation failed", "error", err)
		return llm.Result{}, classify(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return llm.Result{}, &ragModel.ProviderError{Provider: "openai", Kind: ragModel.ProviderMalformed}
	}

	return llm.Result{
		Answer:     resp.Choices[0].Message.Content,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

// classify maps openai-go transport errors onto the shared taxonomy by HTTP
// status; context deadline means the call exceeded our own bound.
func classify(err error) *ragModel.ProviderError {
	kind := ragModel.ProviderMalformed
	var apiErr *openai.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ragModel.ProviderTimeout
	case errors.As(err, &apiErr):
		switch apiErr.StatusCode {
		case 401, 403:
			kind = ragModel.ProviderAuth
		case 429:
			kind = ragModel.ProviderRateLimited
		}
	}
	return &ragModel.ProviderError{Provider: "openai", Kind: kind, Err: err}
}
