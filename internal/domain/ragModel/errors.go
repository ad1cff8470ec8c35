package ragModel

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrDepartmentNotIndexed is surfaced immediately and never retried. It is
// the caller asking about a department that has no index yet, not a fault.
var ErrDepartmentNotIndexed = errors.New("department is not indexed")

type ProviderErrorKind string

const (
	ProviderTimeout     ProviderErrorKind = "timeout"
	ProviderAuth        ProviderErrorKind = "auth"
	ProviderRateLimited ProviderErrorKind = "rate_limited"
	ProviderMalformed   ProviderErrorKind = "malformed"
)

// ProviderError is the typed failure an adapter returns instead of retrying.
// Retry policy lives with the orchestrator, which needs the kind to decide.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the orchestrator may attempt the call again.
// Auth and malformed-request failures repeat identically, so they never are.
func (e *ProviderError) Retryable() bool {
	return e.Kind == ProviderTimeout || e.Kind == ProviderRateLimited
}

func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// ClassifyProviderError maps a raw transport error onto the taxonomy.
// genai surfaces gRPC status codes; context deadline covers both transports.
func ClassifyProviderError(provider string, err error) *ProviderError {
	kind := ProviderMalformed
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ProviderTimeout
	default:
		if s, ok := status.FromError(err); ok {
			switch s.Code() {
			case codes.ResourceExhausted:
				kind = ProviderRateLimited
			case codes.Unauthenticated, codes.PermissionDenied:
				kind = ProviderAuth
			case codes.DeadlineExceeded:
				kind = ProviderTimeout
			}
		}
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}
