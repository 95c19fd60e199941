package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultLibreTranslateURL is the default base URL for a self-hosted LibreTranslate.
const DefaultLibreTranslateURL = "http://localhost:5000"

// LibreTranslateClient implements the Translator interface using LibreTranslate.
// LibreTranslate accepts an array for "q" and answers with an aligned array.
type LibreTranslateClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewLibreTranslateClient creates a new LibreTranslate client.
func NewLibreTranslateClient(baseURL, apiKey string, httpClient *http.Client, logger *logrus.Logger) *LibreTranslateClient {
	if baseURL == "" {
		baseURL = DefaultLibreTranslateURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &LibreTranslateClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// libreTranslateRequest represents a batched LibreTranslate API request.
type libreTranslateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"`
}

// libreTranslateResponse represents a batched LibreTranslate API response.
type libreTranslateResponse struct {
	TranslatedText []string `json:"translatedText"`
}

// languagesResponse represents one entry of the /languages endpoint.
type languagesResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Translate translates the whole batch in one call.
func (c *LibreTranslateClient) Translate(ctx context.Context, req Request) ([]string, error) {
	c.logger.WithFields(logrus.Fields{
		"source_lang": req.Source,
		"target_lang": req.Target,
		"segments":    len(req.Data),
	}).Debug("Translating batch with LibreTranslate")

	payload := libreTranslateRequest{
		Q:      req.Data,
		Source: req.Source,
		Target: req.Target,
		Format: "text",
		APIKey: c.apiKey,
	}

	var resp libreTranslateResponse
	if err := postJSON(ctx, c.httpClient, c.logger, c.baseURL+"/translate", nil, &payload, &resp); err != nil {
		return nil, err
	}

	if err := checkAligned(req, resp.TranslatedText); err != nil {
		c.logger.WithError(err).Error("LibreTranslate returned a misaligned result")
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"source_lang": req.Source,
		"target_lang": req.Target,
		"segments":    len(resp.TranslatedText),
	}).Info("Translation completed successfully")

	return resp.TranslatedText, nil
}

// CheckHealth verifies that LibreTranslate is ready and operational.
func (c *LibreTranslateClient) CheckHealth(ctx context.Context) error {
	c.logger.Debug("Checking LibreTranslate health")

	status, err := getStatus(ctx, c.httpClient, c.baseURL+"/languages")
	if err != nil {
		c.logger.WithError(err).Error("Health check request failed")
		return err
	}
	if status != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status_code": status,
		}).Error("Health check returned non-OK status")
		return &StatusError{StatusCode: status}
	}

	c.logger.Debug("LibreTranslate health check passed")
	return nil
}

// SupportedLanguages returns the language codes LibreTranslate reports.
func (c *LibreTranslateClient) SupportedLanguages(ctx context.Context) ([]string, error) {
	c.logger.Debug("Fetching supported languages from LibreTranslate")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/languages", nil)
	if err != nil {
		return nil, fmt.Errorf("create languages request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("Failed to fetch supported languages")
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var languages []languagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return nil, fmt.Errorf("%w: decode languages: %w", ErrMalformedResponse, err)
	}

	codes := make([]string, 0, len(languages))
	for _, lang := range languages {
		codes = append(codes, lang.Code)
	}

	c.logger.WithFields(logrus.Fields{
		"count": len(codes),
	}).Debug("Fetched supported languages")

	return codes, nil
}
