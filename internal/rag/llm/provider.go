package llm

import "context"

type Result struct {
	Answer     string
	TokensUsed int
}

// Provider makes a single bounded generation call. Failures come back as
// ragModel.ProviderError so the orchestrator can tell "retry this" from
// "fail fast"; the adapter itself never retries.
type Provider interface {
	Model() string
	Generate(ctx context.Context, query string, contextTexts []string) (Result, error)
}
