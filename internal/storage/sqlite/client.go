package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/pkg/logger"
)

var (
	// ErrNotFound is returned when a referenced claim or asset does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNoChanges is returned by field updates whose allow-listed
	// intersection is empty.
	ErrNoChanges = errors.New("no effective changes")
	// ErrInvalidStatus is returned for a status outside the fixed vocabulary.
	ErrInvalidStatus = errors.New("invalid claim status")
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// Ping reports whether the database is reachable, for readiness checks.
func (c *Client) Ping() error {
	return c.db.Ping()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS claims (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claimant_name TEXT NOT NULL,
		village_name TEXT DEFAULT '',
		district TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'Odisha',
		form_type TEXT NOT NULL,
		form_subtype TEXT DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Pending',
		priority TEXT NOT NULL DEFAULT 'Medium',
		submission_date INTEGER NOT NULL,
		is_verified INTEGER NOT NULL DEFAULT 0,
		verification_notes TEXT NOT NULL DEFAULT '',
		assigned_officer TEXT DEFAULT '',
		comments TEXT DEFAULT '',
		document_filename TEXT DEFAULT '',
		document_url TEXT DEFAULT '',
		boundary_ref TEXT DEFAULT '',
		ocr_metadata TEXT,
		extracted_fields TEXT NOT NULL DEFAULT '{}',
		latitude REAL,
		longitude REAL
	);
	CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
	CREATE INDEX IF NOT EXISTS idx_claims_district ON claims(district);
	CREATE INDEX IF NOT EXISTS idx_claims_submitted ON claims(submission_date);

	CREATE TABLE IF NOT EXISTS gis_assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claim_id INTEGER NOT NULL,
		asset_type TEXT NOT NULL,
		asset_name TEXT NOT NULL,
		asset_description TEXT DEFAULT '',
		tile_url TEXT DEFAULT '',
		classification TEXT NOT NULL DEFAULT '{}',
		processing_metadata TEXT NOT NULL DEFAULT '{}',
		total_area_hectares REAL NOT NULL DEFAULT 0,
		satellite_source TEXT DEFAULT '',
		date_range TEXT DEFAULT '',
		created_at INTEGER NOT NULL,
		FOREIGN KEY (claim_id) REFERENCES claims(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_assets_claim ON gis_assets(claim_id);

	CREATE TABLE IF NOT EXISTS gis_analytics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claim_id INTEGER NOT NULL,
		asset_id INTEGER NOT NULL,
		land_class_name TEXT NOT NULL,
		area_hectares REAL NOT NULL CHECK (area_hectares >= 0),
		percentage_of_total REAL NOT NULL,
		confidence_score REAL,
		model_version TEXT DEFAULT '',
		analysis_date INTEGER NOT NULL,
		FOREIGN KEY (claim_id) REFERENCES claims(id) ON DELETE CASCADE,
		FOREIGN KEY (asset_id) REFERENCES gis_assets(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_analytics_claim ON gis_analytics(claim_id);
	CREATE INDEX IF NOT EXISTS idx_analytics_asset ON gis_analytics(asset_id);
	CREATE INDEX IF NOT EXISTS idx_analytics_class ON gis_analytics(land_class_name);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}
