package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SetOverride stores or replaces a manual attention weight for a log entry.
// The caller is responsible for clamping.
func (db *DB) SetOverride(logID string, weight float64) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO attention_overrides (log_id, weight, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(log_id) DO UPDATE SET weight = ?, updated_at = ?
	`, logID, weight, now, weight, now)
	if err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	return nil
}

// GetOverride returns the manual weight for a log entry, and whether one exists.
func (db *DB) GetOverride(logID string) (float64, bool, error) {
	var weight float64
	err := db.QueryRow(
		"SELECT weight FROM attention_overrides WHERE log_id = ?", logID,
	).Scan(&weight)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get override: %w", err)
	}
	return weight, true, nil
}

// DeleteOverride removes the manual weight for a log entry. No-op if absent.
func (db *DB) DeleteOverride(logID string) error {
	_, err := db.Exec("DELETE FROM attention_overrides WHERE log_id = ?", logID)
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	return nil
}

// ClearOverrides removes all manual weights.
func (db *DB) ClearOverrides() error {
	_, err := db.Exec("DELETE FROM attention_overrides")
	if err != nil {
		return fmt.Errorf("clear overrides: %w", err)
	}
	return nil
}

// AllOverrides returns every manual weight keyed by log id.
func (db *DB) AllOverrides() (map[string]float64, error) {
	rows, err := db.Query("SELECT log_id, weight FROM attention_overrides")
	if err != nil {
		return nil, fmt.Errorf("all overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]float64)
	for rows.Next() {
		var id string
		var weight float64
		if err := rows.Scan(&id, &weight); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		overrides[id] = weight
	}
	return overrides, rows.Err()
}
