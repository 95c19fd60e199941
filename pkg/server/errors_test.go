package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dasmlab/vaani/pkg/service"
	"github.com/dasmlab/vaani/pkg/translate"

	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"missing file", service.ErrMissingFile, http.StatusBadRequest},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"wrapped too large", fmt.Errorf("multipart: NextPart: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{"unsupported language", fmt.Errorf("%w: %q", service.ErrUnsupportedLanguage, "xx"), http.StatusUnprocessableEntity},
		{"queue full", fmt.Errorf("%w: 16 jobs in progress", service.ErrQueueFull), http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("translate segments: %w", translate.ErrProviderTimeout), http.StatusGatewayTimeout},
		{"unreachable", translate.ErrProviderUnreachable, http.StatusServiceUnavailable},
		{"status error", &translate.StatusError{StatusCode: 500}, http.StatusBadGateway},
		{"malformed", translate.ErrMalformedResponse, http.StatusBadGateway},
		{"canceled", context.Canceled, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message := statusFor(tt.err)
			require.Equal(t, tt.wantCode, code)
			require.NotEmpty(t, message)
		})
	}

	_, message := statusFor(errors.New("secret detail"))
	require.Equal(t, "Error processing file.", message)
}
