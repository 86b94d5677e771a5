package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Form categories select which pattern table applies.
const (
	CategoryNewClaim    = "new_claim"
	CategoryLegacyClaim = "legacy_claim"
)

// ErrInvalidFormCategory signals a caller contract violation: the category
// is outside the closed set.
var ErrInvalidFormCategory = errors.New("invalid form category")

// Subtypes identify the physical form template within the new_claim
// category.
const (
	SubtypeIFR = "IFR"
	SubtypeCR  = "CR"
	SubtypeCFR = "CFR"
)

// newClaimPatterns covers FRA Forms A/B/C. Each pattern captures the value
// after the printed label on the scanned form.
var newClaimPatterns = map[string]*regexp.Regexp{
	"FullName":           regexp.MustCompile(`(?i)Name of the claimant \(s\):\s*([^\n]+)`),
	"Spouse":             regexp.MustCompile(`(?i)Name of the spouse\s*:\s*([^\n]+)`),
	"Parent":             regexp.MustCompile(`(?i)Name of father/ mother\s*:?\s*([^\n]+)`),
	"Address":            regexp.MustCompile(`(?i)Address:\s*([^\n]+)`),
	"Village":            regexp.MustCompile(`(?i)Village:\s*([^\n]+)`),
	"GramPanchayat":      regexp.MustCompile(`(?i)Gram Panchayat:\s*([^\n]+)`),
	"Tehsil":             regexp.MustCompile(`(?i)Tehsil/ Taluka:\s*([^\n]+)`),
	"District":           regexp.MustCompile(`(?i)District:\s*([^\n]+)`),
	"State":              regexp.MustCompile(`(?i)State:\s*([^\n]+)`),
	"ScheduledTribe":     regexp.MustCompile(`(?i)Scheduled Tribe:\s*([^\n]+)`),
	"OtherForestDweller": regexp.MustCompile(`(?i)Other Traditional Forest Dweller:\s*([^\n]+)`),
	"FamilyMembers":      regexp.MustCompile(`(?i)Name of other members in the family with age:\s*([^\n]+)`),
	"HabitationArea":     regexp.MustCompile(`(?i)for habitation\s*:\s*([^\n]+)`),
	"CultivationArea":    regexp.MustCompile(`(?i)for self-cultivation.*?:\s*([^\n]+)`),
	"DisputedLands":      regexp.MustCompile(`(?i)Disputed lands if any:\s*([^\n]+)`),
	"PattasLeasesGrants": regexp.MustCompile(`(?i)Pattas/ leases/ grants, if any:\s*([^\n]+)`),
	"Evidence":           regexp.MustCompile(`(?i)Evidence in support:\s*([^\n]+)`),
	"FormHeading":        regexp.MustCompile(`(?i)(FORM\s*-\s*[A-Z])`),
}

// legacyClaimPatterns covers previously granted titles.
var legacyClaimPatterns = map[string]*regexp.Regexp{
	"HolderNames":        regexp.MustCompile(`(?i)Name\(s\) of holder \(s\) of forest rights:\s*([^\n]+)`),
	"ParentNames":        regexp.MustCompile(`(?i)Name of the father/ mother:\s*([^\n]+)`),
	"Address":            regexp.MustCompile(`(?i)Address:\s*([^\n]+)`),
	"VillageOrGramSabha": regexp.MustCompile(`(?i)Village/gram sabha:\s*([^\n]+)`),
	"District":           regexp.MustCompile(`(?i)District:\s*([^\n]+)`),
	"State":              regexp.MustCompile(`(?i)State:\s*([^\n]+)`),
	"Area":               regexp.MustCompile(`(?i)Area\s*:\s*([^\n]+)`),
	"Boundaries":         regexp.MustCompile(`(?i)Description of boundaries.*:\s*([^\n]+)`),
}

// subtypeMarkers are tested in fixed priority order; the first structural
// marker present in the text wins.
var subtypeMarkers = []struct {
	marker  *regexp.Regexp
	subtype string
}{
	{regexp.MustCompile(`(?i)FORM\s*-\s*A`), SubtypeIFR},
	{regexp.MustCompile(`(?i)FORM\s*-\s*B`), SubtypeCR},
	{regexp.MustCompile(`(?i)FORM\s*-\s*C`), SubtypeCFR},
}

// Fields pulls every declared field for the category out of rawText. The
// result always contains exactly the declared field names: a matched field
// holds the trimmed first capture group, an unmatched field holds "".
func Fields(rawText, formCategory string) (map[string]string, error) {
	var patterns map[string]*regexp.Regexp
	switch formCategory {
	case CategoryNewClaim:
		patterns = newClaimPatterns
	case CategoryLegacyClaim:
		patterns = legacyClaimPatterns
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormCategory, formCategory)
	}

	fields := make(map[string]string, len(patterns))
	for name, pattern := range patterns {
		match := pattern.FindStringSubmatch(rawText)
		if match != nil {
			fields[name] = strings.TrimSpace(match[1])
		} else {
			fields[name] = ""
		}
	}

	return fields, nil
}

// DetectSubtype returns the form template marker found in rawText, or ""
// when no marker matches.
func DetectSubtype(rawText string) string {
	for _, candidate := range subtypeMarkers {
		if candidate.marker.MatchString(rawText) {
			return candidate.subtype
		}
	}
	return ""
}

// FieldNames reports the declared field set for a category, in no
// particular order.
func FieldNames(formCategory string) ([]string, error) {
	var patterns map[string]*regexp.Regexp
	switch formCategory {
	case CategoryNewClaim:
		patterns = newClaimPatterns
	case CategoryLegacyClaim:
		patterns = legacyClaimPatterns
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormCategory, formCategory)
	}

	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	return names, nil
}
