package translate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerSettings configures the provider circuit breaker.
type BreakerSettings struct {
	Name string
	// MaxFailures is the number of consecutive unreachable/timeout failures
	// that opens the circuit. Zero disables the breaker.
	MaxFailures uint32
	// Cooldown is how long the circuit stays open before a trial call.
	Cooldown time.Duration
}

type breakerTranslator struct {
	Translator

	cb *gobreaker.CircuitBreaker
}

// NewCircuitBreaker stops calling the provider after repeated transport failures.
// Rejected or malformed answers do not count: the provider was reachable.
// Neither do caller cancellations.
func NewCircuitBreaker(t Translator, settings BreakerSettings, logger *logrus.Logger) Translator {
	if settings.MaxFailures == 0 {
		return t
	}
	if logger == nil {
		logger = logrus.New()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return !errors.Is(err, ErrProviderUnreachable) && !errors.Is(err, ErrProviderTimeout)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Translation provider circuit breaker changed state")
		},
	})

	return &breakerTranslator{
		Translator: t,
		cb:         cb,
	}
}

func (t *breakerTranslator) Translate(ctx context.Context, req Request) ([]string, error) {
	result, err := t.cb.Execute(func() (interface{}, error) {
		return t.Translator.Translate(ctx, req)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnreachable, err)
	}
	if err != nil {
		return nil, err
	}

	return result.([]string), nil
}
