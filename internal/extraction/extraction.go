// Package extraction parses recognized document text into named fields by
// anchoring on literal labels.
//
// Matching is deliberately literal: labels are case-sensitive, only the
// remainder of the label's line is captured, and synonyms, translated
// labels, or values wrapped onto the next line are not recognized.
package extraction

import (
	"strings"

	"github.com/JaimeStill/formwise/pkg/fieldmap"
)

// Label binds a literal text anchor to the field name it populates.
type Label struct {
	Text  string
	Field string
}

// DefaultLabels is the vocabulary used by the intake pipeline.
var DefaultLabels = []Label{
	{Text: "Name:", Field: "name"},
	{Text: "Email:", Field: "email"},
	{Text: "Phone:", Field: "phone"},
}

// Extractor maps raw text to fields using a fixed label vocabulary.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	labels []Label
}

// New creates an Extractor for labels. With no labels, DefaultLabels is used.
func New(labels ...Label) *Extractor {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	return &Extractor{labels: append([]Label(nil), labels...)}
}

// Fields returns the field names produced by Extract, in vocabulary order.
func (e *Extractor) Fields() []string {
	fields := make([]string, len(e.labels))
	for i, l := range e.labels {
		fields[i] = l.Field
	}
	return fields
}

// Extract returns a map holding every vocabulary field in vocabulary order.
// A field's value is the trimmed remainder of the line following the first
// occurrence of its label, or the empty string when the label is absent.
func (e *Extractor) Extract(rawText string) fieldmap.Map {
	var fields fieldmap.Map
	for _, l := range e.labels {
		fields.Set(l.Field, find(rawText, l.Text))
	}
	return fields
}

// Extract applies the default vocabulary to rawText.
func Extract(rawText string) fieldmap.Map {
	return defaultExtractor.Extract(rawText)
}

var defaultExtractor = New()

func find(text, label string) string {
	if label == "" {
		return ""
	}

	_, rest, ok := strings.Cut(text, label)
	if !ok {
		return ""
	}

	line, _, _ := strings.Cut(rest, "\n")
	return strings.TrimSpace(line)
}
