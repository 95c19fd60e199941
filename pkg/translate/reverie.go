package translate

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultReverieURL is the base URL of the hosted Reverie NMT API.
	DefaultReverieURL = "https://revapi.reverieinc.com"
	// DefaultTimeout bounds a single batch call when no timeout is configured.
	DefaultTimeout = 30 * time.Second
)

// ReverieCredentials are sent as headers on every call.
type ReverieCredentials struct {
	APIKey  string
	AppID   string
	AppName string
}

// ReverieOptions are the fixed provider flags attached to each batch.
type ReverieOptions struct {
	Mask          bool
	MaskTerms     map[string]string
	FilterProfane bool
	Domain        int
	Logging       bool
}

// DefaultReverieOptions returns the flags the service has always sent.
func DefaultReverieOptions() ReverieOptions {
	return ReverieOptions{
		Mask: true,
		MaskTerms: map[string]string{
			"working":  "asasas",
			"Ashutosh": "Akash",
		},
		FilterProfane: true,
		Domain:        1,
		Logging:       true,
	}
}

// ReverieClient implements the Translator interface against the Reverie NMT API.
type ReverieClient struct {
	baseURL     string
	credentials ReverieCredentials
	options     ReverieOptions
	httpClient  *http.Client
	logger      *logrus.Logger
}

// NewReverieClient creates a new Reverie client.
// An empty baseURL falls back to DefaultReverieURL, a nil httpClient to one
// with DefaultTimeout.
func NewReverieClient(baseURL string, credentials ReverieCredentials, options ReverieOptions, httpClient *http.Client, logger *logrus.Logger) *ReverieClient {
	if baseURL == "" {
		baseURL = DefaultReverieURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &ReverieClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		credentials: credentials,
		options:     options,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// reverieRequest represents a Reverie /translate request.
type reverieRequest struct {
	Data          []string          `json:"data"`
	Src           string            `json:"src"`
	Tgt           string            `json:"tgt"`
	Mask          bool              `json:"mask"`
	MaskTerms     map[string]string `json:"mask_terms,omitempty"`
	FilterProfane bool              `json:"filter_profane"`
	Domain        int               `json:"domain"`
	Logging       bool              `json:"logging"`
}

// reverieResponse represents a Reverie /translate response.
// Result is positionally aligned with the request's Data.
type reverieResponse struct {
	Result []string `json:"result"`
}

// Translate sends every segment in one call and returns the aligned results.
func (c *ReverieClient) Translate(ctx context.Context, req Request) ([]string, error) {
	c.logger.WithFields(logrus.Fields{
		"source_lang": req.Source,
		"target_lang": req.Target,
		"segments":    len(req.Data),
	}).Debug("Translating batch with Reverie")

	payload := reverieRequest{
		Data:          req.Data,
		Src:           req.Source,
		Tgt:           req.Target,
		Mask:          c.options.Mask,
		MaskTerms:     c.options.MaskTerms,
		FilterProfane: c.options.FilterProfane,
		Domain:        c.options.Domain,
		Logging:       c.options.Logging,
	}

	headers := map[string]string{
		"REV-API-KEY": c.credentials.APIKey,
		"REV-APP-ID":  c.credentials.AppID,
		"REV-APPNAME": c.credentials.AppName,
	}

	var resp reverieResponse
	if err := postJSON(ctx, c.httpClient, c.logger, c.baseURL+"/translate", headers, &payload, &resp); err != nil {
		return nil, err
	}

	if err := checkAligned(req, resp.Result); err != nil {
		c.logger.WithError(err).Error("Reverie returned a misaligned result")
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"source_lang": req.Source,
		"target_lang": req.Target,
		"segments":    len(resp.Result),
	}).Info("Translation completed successfully")

	return resp.Result, nil
}

// CheckHealth verifies that the Reverie endpoint answers at all.
// The API has no health route, so any HTTP status counts as reachable.
func (c *ReverieClient) CheckHealth(ctx context.Context) error {
	c.logger.Debug("Checking Reverie health")

	status, err := getStatus(ctx, c.httpClient, c.baseURL)
	if err != nil {
		c.logger.WithError(err).Error("Health check request failed")
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"status_code": status,
	}).Debug("Reverie health check passed")
	return nil
}

// SupportedLanguages returns the codes of the built-in language table.
func (c *ReverieClient) SupportedLanguages(ctx context.Context) ([]string, error) {
	return NewDefaultLanguageTable().Codes(), nil
}
