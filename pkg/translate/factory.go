package translate

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// EngineType represents the type of translation engine to use.
type EngineType string

const (
	// EngineReverie uses the hosted Reverie NMT API.
	EngineReverie EngineType = "reverie"
	// EngineLibreTranslate uses a LibreTranslate server.
	EngineLibreTranslate EngineType = "libretranslate"
)

// Config holds configuration for creating a Translator instance.
type Config struct {
	// Engine specifies which translation engine to use.
	Engine EngineType
	// BaseURL is the base URL for the translation engine API.
	// Each engine has its own default.
	BaseURL string
	// Timeout bounds one batch call. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Reverie credentials and fixed provider flags.
	Reverie        ReverieCredentials
	ReverieOptions ReverieOptions

	// LibreTranslateAPIKey is optional.
	LibreTranslateAPIKey string

	// RateLimit is the allowed batch calls per second. Zero disables limiting.
	RateLimit float64
	// Burst is the token bucket size; at least 1 when limiting is enabled.
	Burst int

	// Breaker configures the circuit breaker. Zero MaxFailures disables it.
	Breaker BreakerSettings

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// NewTranslator creates a Translator for the configured engine, wrapped with
// circuit breaking, rate limiting and metrics.
func NewTranslator(cfg Config) (Translator, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	cfg.Logger.WithFields(logrus.Fields{
		"engine":     cfg.Engine,
		"base_url":   cfg.BaseURL,
		"timeout":    cfg.Timeout.String(),
		"rate_limit": cfg.RateLimit,
	}).Info("Creating translator instance")

	var base Translator
	switch cfg.Engine {
	case EngineReverie:
		base = NewReverieClient(cfg.BaseURL, cfg.Reverie, cfg.ReverieOptions, cfg.HTTPClient, cfg.Logger)
	case EngineLibreTranslate:
		base = NewLibreTranslateClient(cfg.BaseURL, cfg.LibreTranslateAPIKey, cfg.HTTPClient, cfg.Logger)
	default:
		cfg.Logger.WithFields(logrus.Fields{
			"engine": cfg.Engine,
		}).Error("Unknown translation engine")
		return nil, fmt.Errorf("unknown translation engine: %s", cfg.Engine)
	}

	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = string(cfg.Engine)
	}
	t := NewCircuitBreaker(base, cfg.Breaker, cfg.Logger)

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		t = NewRateLimited(rate.NewLimiter(rate.Limit(cfg.RateLimit), burst), t)
	}

	return NewInstrumented(t, NewMetricsCollector(string(cfg.Engine))), nil
}

// ParseEngineType parses a string into an EngineType.
// Returns an error if the string is not a valid engine type.
func ParseEngineType(s string) (EngineType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reverie", "":
		return EngineReverie, nil
	case "libretranslate":
		return EngineLibreTranslate, nil
	default:
		return "", fmt.Errorf("unknown engine type: %s (supported: reverie, libretranslate)", s)
	}
}
