package pricing

import (
	"errors"
	"fmt"
)

// Common pricing errors
var (
	ErrProviderNotFound    = errors.New("provider not found")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrDataMissing         = errors.New("price data missing")
	ErrRateLimited         = errors.New("provider rate limit exceeded")
	ErrInvalidRate         = errors.New("invalid rate")
)

// ProviderError represents a provider-specific failure
type ProviderError struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Provider, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Code:     code,
		Message:  message,
		Err:      err,
	}
}

// IsUnavailable reports whether err means the source could not be reached
// or refused to answer; such failures only blank out the affected group.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrRateLimited) {
		return true
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		switch providerErr.Code {
		case "NETWORK_ERROR", "HTTP_ERROR", "RATE_LIMIT", "TIMEOUT":
			return true
		}
	}

	return false
}
