// Package ner runs a named-entity pass over raw OCR text. The entities are
// advisory hints only: the director consults them after the pattern tables
// and before falling back to defaults.
package ner

import (
	"strings"

	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/pkg/logger"
)

// Hints carries entity candidates found in a document's text.
type Hints struct {
	Persons []string
	Places  []string
}

// Extract tags rawText and buckets person and place entities. A tagging
// failure yields empty hints, never an error: hints are best-effort.
func Extract(rawText string) Hints {
	if strings.TrimSpace(rawText) == "" {
		return Hints{}
	}

	doc, err := prose.NewDocument(rawText, prose.WithExtraction(true))
	if err != nil {
		logger.Warn("NER tagging failed", zap.Error(err))
		return Hints{}
	}

	var hints Hints
	seen := map[string]bool{}
	for _, ent := range doc.Entities() {
		text := strings.TrimSpace(ent.Text)
		if text == "" || seen[ent.Label+":"+text] {
			continue
		}
		seen[ent.Label+":"+text] = true

		switch ent.Label {
		case "PERSON":
			hints.Persons = append(hints.Persons, text)
		case "GPE":
			hints.Places = append(hints.Places, text)
		}
	}

	return hints
}
