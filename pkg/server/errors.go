package server

import (
	"errors"
	"net/http"

	"github.com/dasmlab/vaani/pkg/service"
	"github.com/dasmlab/vaani/pkg/translate"
)

// statusFor maps a pipeline error onto the HTTP status and caller-facing message.
// Details stay in the server log.
func statusFor(err error) (int, string) {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, service.ErrMissingFile):
		return http.StatusBadRequest, "No file uploaded."
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "File too large."
	case errors.Is(err, service.ErrQueueFull):
		return http.StatusServiceUnavailable, "Too many translation jobs, try again later."
	case errors.Is(err, service.ErrUnsupportedLanguage):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, translate.ErrProviderTimeout):
		return http.StatusGatewayTimeout, "Translation provider timed out."
	case errors.Is(err, translate.ErrProviderUnreachable):
		return http.StatusServiceUnavailable, "Translation provider unreachable."
	case errors.Is(err, translate.ErrProviderRejected):
		return http.StatusBadGateway, "Translation provider rejected the request."
	case errors.Is(err, translate.ErrMalformedResponse):
		return http.StatusBadGateway, "Translation provider returned an invalid response."
	default:
		return http.StatusInternalServerError, "Error processing file."
	}
}
