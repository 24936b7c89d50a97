package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vigilhq/vigil/internal/health"
	"github.com/vigilhq/vigil/internal/profile"
	"github.com/vigilhq/vigil/internal/storage"
)

// Store implements AuditStorage using SQLite
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite storage with the given database path
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// StoreProfileDefinition persists a monitor profile
func (s *Store) StoreProfileDefinition(p *profile.Profile) error {
	specJSON, err := json.Marshal(p.Spec)
	if err != nil {
		return fmt.Errorf("failed to marshal spec: %w", err)
	}

	query := `
		INSERT INTO profile_definitions (id, host, description, check_interval, spec_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			host = excluded.host,
			description = excluded.description,
			check_interval = excluded.check_interval,
			spec_json = excluded.spec_json,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = s.db.Exec(query,
		p.Metadata.ID,
		p.Metadata.Host,
		p.Metadata.Description,
		p.Spec.CheckInterval,
		string(specJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store profile definition: %w", err)
	}

	return nil
}

// StoreReport persists one health report
func (s *Store) StoreReport(profileID string, report *health.Report) error {
	var host string
	err := s.db.QueryRow("SELECT host FROM profile_definitions WHERE id = ?", profileID).Scan(&host)
	if err != nil {
		return fmt.Errorf("failed to get profile metadata: %w", err)
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO reports (
			profile_id, host, status, issue_count, alert_count, recovery_count,
			partial, report_json, timestamp
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		profileID,
		host,
		string(report.Status),
		len(report.Issues),
		len(report.Alerts),
		len(report.Recoveries),
		report.Partial,
		string(reportJSON),
		report.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}

	return nil
}

// UpdateLatestState updates the latest state for a profile
func (s *Store) UpdateLatestState(profileID string, report *health.Report) error {
	var host string
	err := s.db.QueryRow("SELECT host FROM profile_definitions WHERE id = ?", profileID).Scan(&host)
	if err != nil {
		return fmt.Errorf("failed to get profile metadata: %w", err)
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO latest_state (
			profile_id, host, status, issue_count, alert_count, recovery_count,
			report_json, timestamp
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET
			host = excluded.host,
			status = excluded.status,
			issue_count = excluded.issue_count,
			alert_count = excluded.alert_count,
			recovery_count = excluded.recovery_count,
			report_json = excluded.report_json,
			timestamp = excluded.timestamp,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = s.db.Exec(query,
		profileID,
		host,
		string(report.Status),
		len(report.Issues),
		len(report.Alerts),
		len(report.Recoveries),
		string(reportJSON),
		report.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update latest state: %w", err)
	}

	return nil
}

// QueryAudit retrieves audit records with optional filtering
func (s *Store) QueryAudit(filter storage.AuditFilter) ([]storage.AuditRecord, error) {
	query := `
		SELECT id, profile_id, host, status, issue_count, alert_count, recovery_count,
		       partial, report_json, timestamp, created_at
		FROM reports
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.ProfileID != "" {
		query += " AND profile_id = ?"
		args = append(args, filter.ProfileID)
	}

	if filter.Host != "" {
		query += " AND host = ?"
		args = append(args, filter.Host)
	}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	if filter.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartTime)
	}

	if filter.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else {
		query += " LIMIT 100" // Default limit
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []storage.AuditRecord
	for rows.Next() {
		var record storage.AuditRecord
		var reportJSON string

		err := rows.Scan(
			&record.ID,
			&record.ProfileID,
			&record.Host,
			&record.Status,
			&record.IssueCount,
			&record.AlertCount,
			&record.RecoveryCount,
			&record.Partial,
			&reportJSON,
			&record.Timestamp,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal([]byte(reportJSON), &record.Report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// GetLatestState retrieves the latest state for a profile
func (s *Store) GetLatestState(profileID string) (*storage.LatestState, error) {
	query := `
		SELECT profile_id, host, status, issue_count, alert_count, recovery_count,
		       report_json, timestamp, updated_at
		FROM latest_state
		WHERE profile_id = ?
	`

	var state storage.LatestState
	var reportJSON string

	err := s.db.QueryRow(query, profileID).Scan(
		&state.ProfileID,
		&state.Host,
		&state.Status,
		&state.IssueCount,
		&state.AlertCount,
		&state.RecoveryCount,
		&reportJSON,
		&state.Timestamp,
		&state.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest state: %w", err)
	}

	if err := json.Unmarshal([]byte(reportJSON), &state.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &state, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
