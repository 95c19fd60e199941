package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dasmlab/vaani/pkg/service"
	"github.com/sirupsen/logrus"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// handleUpload translates an uploaded text file synchronously.
// Multipart fields: "file" and "targetLanguage".
func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	fileName, content, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	targetLanguage := r.FormValue("targetLanguage")

	s.logger.WithFields(logrus.Fields{
		"file_name":       fileName,
		"bytes":           len(content),
		"target_language": targetLanguage,
	}).Debug("Upload received")

	result, err := s.service.TranslateUpload(r.Context(), content, targetLanguage)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleLanguages lists the accepted targetLanguage values.
func (s *HTTPServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"source":    s.service.SourceLanguage,
		"languages": s.service.SupportedLanguages(),
	})
}

// readUpload returns the name and bytes of the "file" form field.
func (s *HTTPServer) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return "", nil, err
		}
		return "", nil, service.ErrMissingFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, service.ErrMissingFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return header.Filename, nil, service.ErrMissingFile
	}

	return header.Filename, data, nil
}

// fail logs err with its full detail and writes the mapped status.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, message := statusFor(err)

	entry := s.logger.WithError(err).WithFields(logrus.Fields{
		"path":        r.URL.Path,
		"status_code": code,
	})
	switch {
	case errors.Is(err, context.Canceled):
		entry.Info("Request canceled by client")
	case code >= http.StatusInternalServerError:
		entry.Error("Request failed")
	default:
		entry.Warn("Request rejected")
	}

	writeError(w, code, message)
}
