package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/storage/models"
	"github.com/atavi-atlas/backend/pkg/logger"
)

const claimColumns = `id, claimant_name, village_name, district, state, form_type,
	form_subtype, status, priority, submission_date, is_verified,
	verification_notes, assigned_officer, comments, document_filename,
	document_url, boundary_ref, ocr_metadata, extracted_fields, latitude, longitude`

// InsertClaim persists a claim draft as a single atomic insert and returns
// the new claim id.
func (c *Client) InsertClaim(draft *models.ClaimDraft) (int, error) {
	fieldsJSON, err := json.Marshal(draft.ExtractedFields)
	if err != nil {
		return 0, fmt.Errorf("failed to encode extracted fields: %w", err)
	}
	if draft.ExtractedFields == nil {
		fieldsJSON = []byte("{}")
	}

	var metaJSON interface{}
	if draft.OCRMetadata != nil {
		data, err := json.Marshal(draft.OCRMetadata)
		if err != nil {
			return 0, fmt.Errorf("failed to encode ocr metadata: %w", err)
		}
		metaJSON = string(data)
	}

	query := `
		INSERT INTO claims (claimant_name, village_name, district, state, form_type,
			form_subtype, status, priority, submission_date, comments,
			document_filename, document_url, ocr_metadata, extracted_fields,
			latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := c.db.Exec(
		query,
		draft.ClaimantName,
		draft.VillageName,
		draft.District,
		draft.State,
		draft.FormType,
		draft.FormSubtype,
		draft.Status,
		draft.Priority,
		time.Now().Unix(),
		draft.Comments,
		draft.DocumentFilename,
		draft.DocumentURL,
		metaJSON,
		string(fieldsJSON),
		draft.Latitude,
		draft.Longitude,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read claim id: %w", err)
	}

	logger.Info("Claim inserted",
		zap.Int64("claim_id", id),
		zap.String("claimant", draft.ClaimantName),
		zap.String("district", draft.District),
	)

	return int(id), nil
}

// GetClaim returns nil (not an error) when the claim does not exist. The
// light view omits extracted fields, OCR metadata, coordinates and GIS
// counts to keep list responses small.
func (c *Client) GetClaim(id int, includeFullData bool) (*models.Claim, error) {
	query := fmt.Sprintf(`SELECT %s FROM claims WHERE id = ?`, claimColumns)

	claim, err := scanClaim(c.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	if !includeFullData {
		claim.ExtractedFields = nil
		claim.OCRMetadata = nil
		claim.Latitude = nil
		claim.Longitude = nil
		return claim, nil
	}

	err = c.db.QueryRow(
		`SELECT
			(SELECT COUNT(*) FROM gis_assets WHERE claim_id = ?),
			(SELECT COUNT(*) FROM gis_analytics WHERE claim_id = ?)`,
		id, id,
	).Scan(&claim.GISAssetCount, &claim.GISAnalyticsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count gis records: %w", err)
	}

	return claim, nil
}

func (c *Client) ListClaims(skip, limit int, includeFullData bool) ([]models.Claim, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM claims ORDER BY submission_date DESC, id DESC LIMIT ? OFFSET ?`,
		claimColumns,
	)
	return c.queryClaims(query, includeFullData, limit, skip)
}

func (c *Client) ClaimsByStatus(status string, includeFullData bool) ([]models.Claim, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM claims WHERE status = ? ORDER BY submission_date DESC, id DESC`,
		claimColumns,
	)
	return c.queryClaims(query, includeFullData, status)
}

func (c *Client) ClaimsByDistrict(district string, includeFullData bool) ([]models.Claim, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM claims WHERE district LIKE ? ORDER BY submission_date DESC, id DESC`,
		claimColumns,
	)
	return c.queryClaims(query, includeFullData, "%"+district+"%")
}

// SearchClaims matches free text against claimant name, district, village
// and document filename.
func (c *Client) SearchClaims(term string, includeFullData bool) ([]models.Claim, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM claims
		WHERE claimant_name LIKE ? OR district LIKE ? OR village_name LIKE ? OR document_filename LIKE ?
		ORDER BY submission_date DESC, id DESC`,
		claimColumns,
	)
	pattern := "%" + term + "%"
	return c.queryClaims(query, includeFullData, pattern, pattern, pattern, pattern)
}

// UpdateClaimStatus sets the status and appends a timestamped transition
// line to verification_notes. Calling it twice with the same status is not
// an error; each call appends its own note.
func (c *Client) UpdateClaimStatus(id int, newStatus, notes string) error {
	if !models.ValidStatus(newStatus) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldStatus string
	err = tx.QueryRow(`SELECT status FROM claims WHERE id = ?`, id).Scan(&oldStatus)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read claim status: %w", err)
	}

	note := transitionNote(oldStatus, newStatus, notes)
	_, err = tx.Exec(
		`UPDATE claims SET status = ?, verification_notes = verification_notes || ? WHERE id = ?`,
		newStatus, note, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update claim status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status update: %w", err)
	}

	logger.Info("Claim status updated",
		zap.Int("claim_id", id),
		zap.String("from", oldStatus),
		zap.String("to", newStatus),
	)

	return nil
}

// AssignOfficer sets the assigned officer and moves the claim to Under
// Review as a side effect.
func (c *Client) AssignOfficer(id int, officerName string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldStatus string
	err = tx.QueryRow(`SELECT status FROM claims WHERE id = ?`, id).Scan(&oldStatus)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read claim status: %w", err)
	}

	note := transitionNote(oldStatus, models.StatusUnderReview, "assigned to "+officerName)
	_, err = tx.Exec(
		`UPDATE claims SET assigned_officer = ?, status = ?, verification_notes = verification_notes || ? WHERE id = ?`,
		officerName, models.StatusUnderReview, note, id,
	)
	if err != nil {
		return fmt.Errorf("failed to assign officer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit officer assignment: %w", err)
	}

	logger.Info("Claim assigned",
		zap.Int("claim_id", id),
		zap.String("officer", officerName),
	)

	return nil
}

// updatableColumns is the allow-list for partial field updates. Unknown
// field names are ignored so forward-compatible clients do not fail.
var updatableColumns = map[string]string{
	"claimant_name": "claimant_name",
	"village_name":  "village_name",
	"district":      "district",
	"state":         "state",
	"form_type":     "form_type",
	"form_subtype":  "form_subtype",
	"priority":      "priority",
	"comments":      "comments",
	"is_verified":   "is_verified",
	"boundary_ref":  "boundary_ref",
	"latitude":      "latitude",
	"longitude":     "longitude",
}

func (c *Client) UpdateClaimFields(id int, updates map[string]interface{}) ([]string, error) {
	setClause := ""
	args := make([]interface{}, 0, len(updates)+1)
	applied := make([]string, 0, len(updates))

	for field, value := range updates {
		column, ok := updatableColumns[field]
		if !ok {
			continue
		}
		if setClause != "" {
			setClause += ", "
		}
		setClause += column + " = ?"
		args = append(args, value)
		applied = append(applied, field)
	}

	if len(applied) == 0 {
		return nil, ErrNoChanges
	}

	args = append(args, id)
	result, err := c.db.Exec(`UPDATE claims SET `+setClause+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	logger.Info("Claim updated", zap.Int("claim_id", id), zap.Strings("fields", applied))
	return applied, nil
}

// DeleteClaim removes the claim; the ON DELETE CASCADE constraints remove
// all owned GIS assets and analytics rows in the same transaction.
func (c *Client) DeleteClaim(id int) error {
	result, err := c.db.Exec(`DELETE FROM claims WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	logger.Info("Claim deleted", zap.Int("claim_id", id))
	return nil
}

func (c *Client) queryClaims(query string, includeFullData bool, args ...interface{}) ([]models.Claim, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	var claims []models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		if !includeFullData {
			claim.ExtractedFields = nil
			claim.OCRMetadata = nil
			claim.Latitude = nil
			claim.Longitude = nil
		}
		claims = append(claims, *claim)
	}

	return claims, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (*models.Claim, error) {
	var claim models.Claim
	var submitted int64
	var verified int
	var metaJSON sql.NullString
	var fieldsJSON string
	var lat, lng sql.NullFloat64
	var village, subtype, officer, comments, filename, docURL, boundaryRef sql.NullString

	err := row.Scan(
		&claim.ID,
		&claim.ClaimantName,
		&village,
		&claim.District,
		&claim.State,
		&claim.FormType,
		&subtype,
		&claim.Status,
		&claim.Priority,
		&submitted,
		&verified,
		&claim.VerificationNotes,
		&officer,
		&comments,
		&filename,
		&docURL,
		&boundaryRef,
		&metaJSON,
		&fieldsJSON,
		&lat,
		&lng,
	)
	if err != nil {
		return nil, err
	}

	claim.VillageName = village.String
	claim.FormSubtype = subtype.String
	claim.AssignedOfficer = officer.String
	claim.Comments = comments.String
	claim.DocumentFilename = filename.String
	claim.DocumentURL = docURL.String
	claim.BoundaryRef = boundaryRef.String
	claim.SubmissionDate = time.Unix(submitted, 0)
	claim.IsVerified = verified != 0

	// extracted_fields is always present, never null, so downstream
	// consumers need no nil check.
	claim.ExtractedFields = map[string]string{}
	if err := json.Unmarshal([]byte(fieldsJSON), &claim.ExtractedFields); err != nil {
		return nil, fmt.Errorf("failed to decode extracted fields: %w", err)
	}

	if metaJSON.Valid && metaJSON.String != "" {
		var meta models.OCRMetadata
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
			return nil, fmt.Errorf("failed to decode ocr metadata: %w", err)
		}
		claim.OCRMetadata = &meta
	}

	if lat.Valid {
		v := lat.Float64
		claim.Latitude = &v
	}
	if lng.Valid {
		v := lng.Float64
		claim.Longitude = &v
	}

	return &claim, nil
}

func transitionNote(from, to, notes string) string {
	line := fmt.Sprintf("[%s] status: %s -> %s", time.Now().UTC().Format(time.RFC3339), from, to)
	if notes != "" {
		line += " | " + notes
	}
	return line + "\n"
}
