// Package segment splits uploaded text into ordered, translatable units.
package segment

import (
	"fmt"
	"strings"
	"unicode"
)

// Segment is one unit of source text. IDs are 0-based and follow split order.
type Segment struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Splitter is a segmentation strategy.
type Splitter interface {
	Split(text string) []Segment
}

// Strategy names accepted by Parse.
const (
	StrategyDelimiter = "delimiter"
	StrategySentence  = "sentence"
)

// Parse resolves a strategy name. An empty name selects the delimiter strategy.
func Parse(name string) (Splitter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategyDelimiter, "":
		return DelimiterSplitter{Delimiter: "."}, nil
	case StrategySentence:
		return SentenceSplitter{}, nil
	default:
		return nil, fmt.Errorf("unknown segmenter: %s (supported: delimiter, sentence)", name)
	}
}

// DelimiterSplitter cuts text on every occurrence of Delimiter.
// The delimiter itself is dropped, so "Hi. Bye." yields "Hi" and "Bye".
type DelimiterSplitter struct {
	Delimiter string
}

func (d DelimiterSplitter) Split(text string) []Segment {
	delimiter := d.Delimiter
	if delimiter == "" {
		delimiter = "."
	}

	return number(strings.Split(text, delimiter))
}

// SentenceSplitter cuts after '.', '!' or '?' when followed by whitespace or
// the end of text, keeping the punctuation with its sentence.
type SentenceSplitter struct{}

func (SentenceSplitter) Split(text string) []Segment {
	var pieces []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}

		pieces = append(pieces, current.String())
		current.Reset()
	}

	pieces = append(pieces, current.String())

	return number(pieces)
}

// number trims pieces, drops blank ones and assigns sequential ids.
func number(pieces []string) []Segment {
	segments := make([]Segment, 0, len(pieces))

	for _, piece := range pieces {
		text := strings.TrimSpace(piece)
		if text == "" {
			continue
		}

		segments = append(segments, Segment{
			ID:   len(segments),
			Text: text,
		})
	}

	return segments
}

// Texts returns the segment texts in order.
func Texts(segments []Segment) []string {
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	return texts
}
