package rag

import (
	"context"
	"time"

	"github.com/avarma/deptqa/internal/config"
	"github.com/avarma/deptqa/internal/domain/ragModel"
	"github.com/avarma/deptqa/internal/rag/llm"
	"github.com/avarma/deptqa/pkg/logger_i"
)

// GenerationStrategy is one step of the ordered fallback chain. Strategies
// are evaluated in order until one produces an answer; the last one in a
// well-formed chain cannot fail.
type GenerationStrategy interface {
	Name() string
	// Degraded marks strategies whose answer is an apology rather than a
	// real generation; queries they serve count as failed in metrics.
	Degraded() bool
	Generate(ctx context.Context, query string, contextTexts []string) (llm.Result, string, error)
}

type providerStrategy struct {
	provider llm.Provider
	name     string
}

// NewProviderStrategy wraps a remote generation provider.
func NewProviderStrategy(name string, provider llm.Provider) GenerationStrategy {
	return &providerStrategy{provider: provider, name: name}
}

func (s *providerStrategy) Name() string {
	return s.name
}

func (s *providerStrategy) Degraded() bool {
	return false
}

func (s *providerStrategy) Generate(ctx context.Context, query string, contextTexts []string) (llm.Result, string, error) {
	result, err := s.provider.Generate(ctx, query, contextTexts)
	return result, s.provider.Model(), err
}

type staticStrategy struct {
	answer string
	model  string
}

// NewStaticStrategy terminates the chain: a fixed explanatory answer when
// every provider is unavailable. The request still completes normally.
func NewStaticStrategy(answer string, model string) GenerationStrategy {
	return &staticStrategy{answer: answer, model: model}
}

func (s *staticStrategy) Name() string {
	return "static"
}

func (s *staticStrategy) Degraded() bool {
	return true
}

func (s *staticStrategy) Generate(ctx context.Context, query string, contextTexts []string) (llm.Result, string, error) {
	return llm.Result{Answer: s.answer}, s.model, nil
}

type generationOutcome struct {
	result   llm.Result
	model    string
	answered bool
	degraded bool
	lastErr  error
}

// runStrategies walks the chain. Transient failures get bounded retries with
// backoff on the same strategy; auth and malformed failures move straight to
// the next one since repeating them changes nothing.
func runStrategies(ctx context.Context, strategies []GenerationStrategy, query string, contextTexts []string, log *logger_i.Logger) generationOutcome {
	outcome := generationOutcome{}
	for _, strategy := range strategies {
		for attempt := 1; attempt <= config.ProviderMaxAttempts; attempt++ {
			result, model, err := strategy.Generate(ctx, query, contextTexts)
			if err == nil {
				outcome.result = result
				outcome.model = model
				outcome.answered = true
				outcome.degraded = strategy.Degraded()
				return outcome
			}

			outcome.lastErr = err
			log.Warn("Generation strategy failed", "strategy", strategy.Name(), "attempt", attempt, "error", err)
			if !ragModel.IsRetryable(err) || attempt == config.ProviderMaxAttempts {
				break
			}
			select {
			case <-ctx.Done():
				return outcome
			case <-time.After(config.ProviderRetryBackoff):
			}
		}
		if ctx.Err() != nil {
			return outcome
		}
	}
	return outcome
}
