package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dasmlab/vaani/pkg/segment"
	"github.com/dasmlab/vaani/pkg/translate"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMissingFile is returned when no upload content was supplied.
	ErrMissingFile = errors.New("no file uploaded")
	// ErrUnsupportedLanguage is returned when the target language name is not in the table.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// contentSeparator joins translated segments into TranslatedContent.
const contentSeparator = ". "

// ResponseSegment pairs a source segment with its translation.
type ResponseSegment struct {
	ID             int    `json:"id"`
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
}

// UploadResult is the JSON body returned for a translated upload.
type UploadResult struct {
	Segments          []ResponseSegment `json:"segments"`
	TranslatedContent string            `json:"translatedContent"`
}

// TranslationService runs the segment-translate-reassemble pipeline.
// It holds no per-request state and is safe for concurrent use.
type TranslationService struct {
	// Translator is the batch translation backend.
	Translator translate.Translator

	// Languages resolves target language names to provider codes.
	Languages *translate.LanguageTable

	// Splitter is the segmentation strategy.
	Splitter segment.Splitter

	// SourceLanguage is the provider code of the uploaded text.
	SourceLanguage string

	// Logger for service operations.
	Logger *logrus.Logger
}

// NewTranslationService creates a new TranslationService instance.
// Nil collaborators fall back to the built-in language table, the "." delimiter
// strategy and English as source language.
func NewTranslationService(translator translate.Translator, languages *translate.LanguageTable, splitter segment.Splitter, sourceLanguage string, logger *logrus.Logger) *TranslationService {
	if languages == nil {
		languages = translate.NewDefaultLanguageTable()
	}
	if splitter == nil {
		splitter = segment.DelimiterSplitter{Delimiter: "."}
	}
	if sourceLanguage == "" {
		sourceLanguage = "en"
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &TranslationService{
		Translator:     translator,
		Languages:      languages,
		Splitter:       splitter,
		SourceLanguage: sourceLanguage,
		Logger:         logger,
	}
}

// ResolveLanguage maps a target language name to its provider code.
func (s *TranslationService) ResolveLanguage(name string) (string, error) {
	code, ok := s.Languages.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, name)
	}
	return code, nil
}

// TranslateUpload splits content into segments, translates them in one batch
// and pairs each translation with its source segment by position.
func (s *TranslationService) TranslateUpload(ctx context.Context, content []byte, targetLanguage string) (*UploadResult, error) {
	if len(content) == 0 {
		return nil, ErrMissingFile
	}

	targetCode, err := s.ResolveLanguage(targetLanguage)
	if err != nil {
		s.Logger.WithFields(logrus.Fields{
			"target_language": targetLanguage,
		}).Warn("Rejected upload with unsupported target language")
		return nil, err
	}

	text := strings.ToValidUTF8(string(content), "\uFFFD")
	segments := s.Splitter.Split(text)

	logger := s.Logger.WithFields(logrus.Fields{
		"source_lang": s.SourceLanguage,
		"target_lang": targetCode,
		"segments":    len(segments),
		"bytes":       len(content),
	})

	if len(segments) == 0 {
		logger.Info("Upload contains no translatable segments")
		return &UploadResult{
			Segments: []ResponseSegment{},
		}, nil
	}

	if s.Translator == nil {
		logger.Error("Translator not configured")
		return nil, errors.New("translator not configured")
	}

	startTime := time.Now()

	translated, err := s.Translator.Translate(ctx, translate.Request{
		Data:   segment.Texts(segments),
		Source: s.SourceLanguage,
		Target: targetCode,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.WithError(err).Info("Batch translation canceled")
		} else {
			logger.WithError(err).Error("Batch translation failed")
		}
		return nil, fmt.Errorf("translate segments: %w", err)
	}

	if len(translated) != len(segments) {
		err := fmt.Errorf("%w: got %d results for %d segments", translate.ErrMalformedResponse, len(translated), len(segments))
		logger.WithError(err).Error("Translation result is not aligned with segments")
		return nil, err
	}

	result := &UploadResult{
		Segments: make([]ResponseSegment, len(segments)),
	}

	for i, seg := range segments {
		result.Segments[i] = ResponseSegment{
			ID:             seg.ID,
			OriginalText:   seg.Text,
			TranslatedText: translated[i],
		}
	}
	result.TranslatedContent = strings.Join(translated, contentSeparator)

	logger.WithFields(logrus.Fields{
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Upload translated successfully")

	return result, nil
}

// SupportedLanguages lists the accepted target language names and their codes.
func (s *TranslationService) SupportedLanguages() map[string]string {
	names := s.Languages.Names()
	languages := make(map[string]string, len(names))
	for _, name := range names {
		code, _ := s.Languages.Lookup(name)
		languages[name] = code
	}
	return languages
}
