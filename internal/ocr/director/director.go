// Package director turns OCR output into a canonical claim draft. Every
// required attribute is resolved through an ordered fallback chain so the
// draft handed to the store never carries missing values.
package director

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/atavi-atlas/backend/internal/ocr/extract"
	"github.com/atavi-atlas/backend/internal/ocr/ner"
	"github.com/atavi-atlas/backend/internal/storage/models"
)

// AtlasValues is the structured shape some OCR providers return alongside
// raw fields. When present it takes priority over field lookups.
type AtlasValues struct {
	ClaimantName string
	VillageName  string
	District     string
	State        string
	FormType     string
	FormSubtype  string
	Comments     string
}

// Payload is the tagged union of provider output shapes, resolved once at
// this boundary: a structured atlas payload, raw extracted fields, or both.
type Payload struct {
	Atlas      *AtlasValues
	Fields     map[string]string
	Confidence float64
	RawText    string
	Hints      ner.Hints
}

type Director struct {
	pilotState string
	version    string
}

func New(pilotState, version string) *Director {
	return &Director{
		pilotState: pilotState,
		version:    version,
	}
}

// accessor reads one candidate value from the payload; chains of accessors
// are evaluated in priority order and the first non-empty result wins.
type accessor func(p *Payload) string

func atlasValue(get func(*AtlasValues) string) accessor {
	return func(p *Payload) string {
		if p.Atlas == nil {
			return ""
		}
		return get(p.Atlas)
	}
}

func fieldValue(name string) accessor {
	return func(p *Payload) string {
		return p.Fields[name]
	}
}

func personHint() accessor {
	return func(p *Payload) string {
		if len(p.Hints.Persons) == 0 {
			return ""
		}
		return p.Hints.Persons[0]
	}
}

func resolve(p *Payload, chain []accessor, fallback string) string {
	for _, get := range chain {
		if v := get(p); v != "" {
			return v
		}
	}
	return fallback
}

// Materialize builds a claim draft from a payload. It is a pure
// transformation: nothing is persisted here, and required attributes
// (claimant name, district, state, form type) are never empty.
func (d *Director) Materialize(p Payload, formCategory, documentName string) (*models.ClaimDraft, error) {
	if formCategory != extract.CategoryNewClaim && formCategory != extract.CategoryLegacyClaim {
		return nil, fmt.Errorf("%w: %q", extract.ErrInvalidFormCategory, formCategory)
	}

	if p.Fields == nil {
		p.Fields = map[string]string{}
	}

	var detectedSubtype, nameField, villageField string
	if formCategory == extract.CategoryNewClaim {
		detectedSubtype = extract.DetectSubtype(p.RawText)
		nameField = "FullName"
		villageField = "Village"
	} else {
		detectedSubtype = "Granted Title"
		nameField = "HolderNames"
		villageField = "VillageOrGramSabha"
	}

	subtype := resolve(&p, []accessor{
		atlasValue(func(a *AtlasValues) string { return a.FormSubtype }),
		func(*Payload) string { return detectedSubtype },
	}, extract.SubtypeIFR)

	formTypeDisplay := subtype
	if formCategory == extract.CategoryLegacyClaim {
		formTypeDisplay = "Legacy - Granted Title"
	}

	now := time.Now()

	// A structured payload with no raw text is a manual entry: no OCR ran,
	// so the draft stays Pending and carries no pipeline metadata.
	manual := p.Atlas != nil && p.RawText == ""

	status := models.StatusOCRProcessed
	defaultComments := fmt.Sprintf("Processed via Atavi Atlas OCR pipeline on %s", now.Format("2006-01-02 15:04:05"))
	var meta *models.OCRMetadata
	if manual {
		status = models.StatusPending
		defaultComments = ""
	} else {
		meta = &models.OCRMetadata{
			AtlasVersion:   d.version,
			ProcessingDate: now.Format(time.RFC3339),
			Confidence:     p.Confidence,
			FormType:       formCategory,
			FormSubtype:    subtype,
			RawText:        p.RawText,
			PilotState:     d.pilotState,
		}
	}

	draft := &models.ClaimDraft{
		ClaimantName: resolve(&p, []accessor{
			atlasValue(func(a *AtlasValues) string { return a.ClaimantName }),
			fieldValue(nameField),
			fieldValue("Name"),
			personHint(),
		}, "Unknown"),
		VillageName: resolve(&p, []accessor{
			atlasValue(func(a *AtlasValues) string { return a.VillageName }),
			fieldValue(villageField),
		}, ""),
		District: resolve(&p, []accessor{
			atlasValue(func(a *AtlasValues) string { return a.District }),
			fieldValue("District"),
		}, "Unknown"),
		State: resolve(&p, []accessor{
			atlasValue(func(a *AtlasValues) string { return a.State }),
			fieldValue("State"),
		}, d.pilotState),
		FormType: resolve(&p, []accessor{
			atlasValue(func(a *AtlasValues) string { return a.FormType }),
			func(*Payload) string { return formTypeDisplay },
			fieldValue("FormHeading"),
		}, "FRA Form"),
		FormSubtype: subtype,
		Status:      status,
		Priority:    "Medium",
		Comments: resolve(&p, []accessor{
			atlasValue(func(a *AtlasValues) string { return a.Comments }),
		}, defaultComments),
		DocumentFilename: documentName,
		ExtractedFields:  p.Fields,
		OCRMetadata:      meta,
		Latitude:         coordinate(p.Fields, latitudeFields),
		Longitude:        coordinate(p.Fields, longitudeFields),
	}

	return draft, nil
}

var (
	latitudeFields  = []string{"Latitude", "latitude", "lat", "Lat"}
	longitudeFields = []string{"Longitude", "longitude", "lng", "Lng", "long", "Long"}
	numberPattern   = regexp.MustCompile(`-?[\d.]+`)
)

// coordinate pulls the first parseable number out of any of the candidate
// field names. Forms record coordinates in several loose formats.
func coordinate(fields map[string]string, names []string) *float64 {
	for _, name := range names {
		raw, ok := fields[name]
		if !ok || raw == "" {
			continue
		}
		match := numberPattern.FindString(raw)
		if match == "" {
			continue
		}
		value, err := strconv.ParseFloat(match, 64)
		if err != nil {
			continue
		}
		return &value
	}
	return nil
}
