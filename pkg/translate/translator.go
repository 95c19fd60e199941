package translate

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Translator defines the interface for batch machine translation backends.
// One call carries every segment of an upload; implementations must return
// exactly one translated string per input string, in the same order.
type Translator interface {
	// Translate sends the whole batch to the backend in a single request.
	Translate(ctx context.Context, req Request) ([]string, error)

	// CheckHealth verifies that the translation backend is reachable.
	CheckHealth(ctx context.Context) error

	// SupportedLanguages returns the provider codes this backend accepts.
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// Request is one batched translation call.
type Request struct {
	// Data holds the segment texts in upload order.
	Data []string
	// Source is the provider code of the source language (e.g. "en").
	Source string
	// Target is the provider code of the target language (e.g. "hi").
	Target string
}

var (
	// ErrProviderUnreachable is returned when the provider cannot be contacted
	// or the circuit breaker is open.
	ErrProviderUnreachable = errors.New("translation provider unreachable")
	// ErrProviderTimeout is returned when the provider did not answer in time.
	ErrProviderTimeout = errors.New("translation provider timed out")
	// ErrProviderRejected is returned when the provider answered with a non-2xx status.
	ErrProviderRejected = errors.New("translation provider rejected request")
	// ErrMalformedResponse is returned when the provider answer cannot be used,
	// including a result list whose length differs from the request.
	ErrMalformedResponse = errors.New("malformed translation provider response")
)

// StatusError carries the status and body of a rejected provider call.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrProviderRejected
}

// classifyTransportError maps an http.Client failure onto the provider taxonomy.
// A caller cancellation stays outside it: the provider did nothing wrong.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("request canceled: %w", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrProviderTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrProviderTimeout, err)
	}

	return fmt.Errorf("%w: %w", ErrProviderUnreachable, err)
}

// checkAligned enforces the positional contract between request and result.
func checkAligned(req Request, result []string) error {
	if result == nil {
		return fmt.Errorf("%w: missing result list", ErrMalformedResponse)
	}
	if len(result) != len(req.Data) {
		return fmt.Errorf("%w: got %d results for %d segments", ErrMalformedResponse, len(result), len(req.Data))
	}
	return nil
}
