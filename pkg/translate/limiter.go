package translate

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimitedTranslator struct {
	Translator

	limiter *rate.Limiter
}

// NewRateLimited throttles outbound batch calls with a token bucket.
// A nil limiter returns t unchanged.
func NewRateLimited(l *rate.Limiter, t Translator) Translator {
	if l == nil {
		return t
	}

	return &rateLimitedTranslator{
		Translator: t,
		limiter:    l,
	}
}

func (t *rateLimitedTranslator) Translate(ctx context.Context, req Request) ([]string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("rate limit wait: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: rate limit wait: %w", ErrProviderTimeout, err)
	}

	return t.Translator.Translate(ctx, req)
}
