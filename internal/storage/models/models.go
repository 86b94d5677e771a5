package models

import "time"

// Claim statuses. The workflow is advisory: reviewers may move a claim to
// any status, but the value must come from this vocabulary.
const (
	StatusPending      = "Pending"
	StatusOCRProcessed = "OCR Processed"
	StatusUnderReview  = "Under Review"
	StatusApproved     = "Approved"
	StatusRejected     = "Rejected"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusOCRProcessed, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// OCRMetadata records how a claim's text was produced.
type OCRMetadata struct {
	AtlasVersion   string  `json:"atlas_version"`
	ProcessingDate string  `json:"processing_date"`
	Confidence     float64 `json:"confidence"`
	FormType       string  `json:"form_type"`
	FormSubtype    string  `json:"form_subtype"`
	RawText        string  `json:"raw_text"`
	PilotState     string  `json:"pilot_state"`
}

type Claim struct {
	ID                int               `json:"id"`
	ClaimantName      string            `json:"claimant_name"`
	VillageName       string            `json:"village_name"`
	District          string            `json:"district"`
	State             string            `json:"state"`
	FormType          string            `json:"form_type"`
	FormSubtype       string            `json:"form_subtype"`
	Status            string            `json:"status"`
	Priority          string            `json:"priority"`
	SubmissionDate    time.Time         `json:"submission_date"`
	IsVerified        bool              `json:"is_verified"`
	VerificationNotes string            `json:"verification_notes"`
	AssignedOfficer   string            `json:"assigned_officer"`
	Comments          string            `json:"comments"`
	DocumentFilename  string            `json:"document_filename"`
	DocumentURL       string            `json:"document_url"`
	BoundaryRef       string            `json:"boundary_ref"`
	OCRMetadata       *OCRMetadata      `json:"ocr_metadata,omitempty"`
	ExtractedFields   map[string]string `json:"extracted_fields,omitempty"`
	Latitude          *float64          `json:"latitude,omitempty"`
	Longitude         *float64          `json:"longitude,omitempty"`

	// GIS summary counts, populated on full reads only.
	GISAssetCount     int `json:"gis_asset_count"`
	GISAnalyticsCount int `json:"gis_analytics_count"`
}

// ClaimDraft is the canonical claim-creation request produced by the
// director or by manual entry. Required fields are never empty.
type ClaimDraft struct {
	ClaimantName     string
	VillageName      string
	District         string
	State            string
	FormType         string
	FormSubtype      string
	Status           string
	Priority         string
	Comments         string
	DocumentFilename string
	DocumentURL      string
	OCRMetadata      *OCRMetadata
	ExtractedFields  map[string]string
	Latitude         *float64
	Longitude        *float64
}

// GISAsset is one land-classification run for one claim. Assets are
// append-only: a re-run creates a new asset rather than updating history.
type GISAsset struct {
	ID                 int                `json:"id"`
	ClaimID            int                `json:"claim_id"`
	AssetType          string             `json:"asset_type"`
	AssetName          string             `json:"asset_name"`
	AssetDescription   string             `json:"asset_description"`
	TileURL            string             `json:"tile_url"`
	Classification     map[string]float64 `json:"classification"`
	ProcessingMetadata ProcessingMetadata `json:"processing_metadata"`
	TotalAreaHectares  float64            `json:"total_area_hectares"`
	SatelliteSource    string             `json:"satellite_source"`
	DateRange          string             `json:"date_range"`
	CreatedAt          time.Time          `json:"created_at"`
}

type ProcessingMetadata struct {
	ModelVersion     string `json:"model_version"`
	SatelliteSource  string `json:"satellite_source"`
	DateRange        string `json:"date_range"`
	ResolutionMeters int    `json:"resolution_meters"`
	Mode             string `json:"mode"`
}

// GISAnalytics is one land-cover-class row within one asset.
type GISAnalytics struct {
	ID              int       `json:"id"`
	ClaimID         int       `json:"claim_id"`
	AssetID         int       `json:"asset_id"`
	LandClassName   string    `json:"land_class"`
	AreaHectares    float64   `json:"area_hectares"`
	Percentage      float64   `json:"percentage"`
	ConfidenceScore float64   `json:"confidence"`
	ModelVersion    string    `json:"model_version"`
	AnalysisDate    time.Time `json:"analysis_date"`
}

type CountByKey struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// DashboardStats aggregates claim and GIS coverage figures for the
// dashboard surface.
type DashboardStats struct {
	TotalClaims      int          `json:"total_claims"`
	StatusBreakdown  []CountByKey `json:"status_breakdown"`
	Districts        []CountByKey `json:"districts"`
	FormSubtypes     []CountByKey `json:"form_subtypes"`
	Priorities       []CountByKey `json:"priorities"`
	VerifiedClaims   int          `json:"verified_claims"`
	UnverifiedClaims int          `json:"unverified_claims"`
	ClaimsLast7Days  int          `json:"claims_last_7_days"`
	GISAnalyzed      int          `json:"gis_analyzed_claims"`
	GISCoveragePct   float64      `json:"gis_coverage_percent"`
}

type ClaimsSummary struct {
	TotalClaims     int     `json:"total_claims"`
	PendingClaims   int     `json:"pending_claims"`
	ProcessedClaims int     `json:"processed_claims"`
	CompletionRate  float64 `json:"completion_rate"`
}

type LandClassBreakdown struct {
	LandClass    string  `json:"land_class"`
	AreaHectares float64 `json:"area_hectares"`
	Percentage   float64 `json:"percentage"`
}

type GISSummary struct {
	TotalAnalyzedAreaHectares float64              `json:"total_analyzed_area_hectares"`
	TotalForestAreaHectares   float64              `json:"total_forest_area_hectares"`
	ForestCoveragePercent     float64              `json:"forest_coverage_percent"`
	LandClassBreakdown        []LandClassBreakdown `json:"land_class_breakdown"`
}
