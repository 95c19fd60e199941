package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// maxErrorBody bounds how much of a rejected response body is kept.
const maxErrorBody = 4 << 10

// postJSON sends body as JSON and decodes a 2xx answer into out.
// Errors are classified into the provider taxonomy.
func postJSON(ctx context.Context, client *http.Client, logger *logrus.Logger, url string, headers map[string]string, body, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		logger.WithError(err).Error("Failed to encode translation request")
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		logger.WithError(err).Error("Failed to create translation request")
		return fmt.Errorf("create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		entry := logger.WithError(err).WithFields(logrus.Fields{
			"url": url,
		})
		if errors.Is(err, context.Canceled) {
			entry.Debug("Translation request canceled by caller")
		} else {
			entry.Error("Translation request failed")
		}
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	duration := time.Since(startTime)
	logger.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration_ms": duration.Milliseconds(),
	}).Debug("Translation request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    string(bodyBytes),
		}).Error("Translation request returned non-OK status")
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.WithError(err).Debug("Translation response interrupted")
			return classifyTransportError(fmt.Errorf("%w: %w", ctxErr, err))
		}
		logger.WithError(err).Error("Failed to decode translation response")
		return fmt.Errorf("%w: decode response: %w", ErrMalformedResponse, err)
	}

	return nil
}

// getStatus issues a GET and treats any HTTP answer as reachable.
func getStatus(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create health check request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, classifyTransportError(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	return resp.StatusCode, nil
}
