package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Embedding states for a log entry. Pending entries are stored and visible
// to recency/importance listing but excluded from semantic ranking.
const (
	EmbedReady   = "ready"
	EmbedPending = "pending"
)

// LogEntry is a single memory entry.
type LogEntry struct {
	ID         string
	Content    string
	Category   string // meeting, design, research, personal, task, idea, other
	Tags       []string
	Importance float64
	EmbedState string
	CreatedAt  int64
	UpdatedAt  int64
}

// CreateLog inserts a new log entry. The caller supplies the id.
func (db *DB) CreateLog(entry *LogEntry) error {
	now := time.Now().UnixMilli()
	if entry.CreatedAt == 0 {
		entry.CreatedAt = now
	}
	if entry.Category == "" {
		entry.Category = "other"
	}
	if entry.EmbedState == "" {
		entry.EmbedState = EmbedPending
	}
	tags, err := json.Marshal(entry.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO logs (id, content, category, tags, importance, embed_state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Content, entry.Category, string(tags),
		entry.Importance, entry.EmbedState, entry.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("create log: %w", err)
	}
	entry.UpdatedAt = now
	return nil
}

// GetLog returns a log entry by id, or nil if not found.
func (db *DB) GetLog(id string) (*LogEntry, error) {
	row := db.QueryRow(`
		SELECT id, content, category, tags, importance, embed_state, created_at, updated_at
		FROM logs WHERE id = ?
	`, id)
	entry, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get log: %w", err)
	}
	return entry, nil
}

// UpdateLog updates a log entry's content, category, tags, and importance.
func (db *DB) UpdateLog(entry *LogEntry) error {
	now := time.Now().UnixMilli()
	tags, err := json.Marshal(entry.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	_, err = db.Exec(`
		UPDATE logs SET content = ?, category = ?, tags = ?, importance = ?, embed_state = ?, updated_at = ?
		WHERE id = ?
	`, entry.Content, entry.Category, string(tags), entry.Importance, entry.EmbedState, now, entry.ID)
	if err != nil {
		return fmt.Errorf("update log: %w", err)
	}
	entry.UpdatedAt = now
	return nil
}

// SetEmbedState flips a log entry's embedding state.
func (db *DB) SetEmbedState(id, state string) error {
	_, err := db.Exec("UPDATE logs SET embed_state = ? WHERE id = ?", state, id)
	if err != nil {
		return fmt.Errorf("set embed state: %w", err)
	}
	return nil
}

// DeleteLog removes a log entry. Its vector and attention override
// go with it via ON DELETE CASCADE.
func (db *DB) DeleteLog(id string) error {
	_, err := db.Exec("DELETE FROM logs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete log %s: %w", id, err)
	}
	return nil
}

// ListLogs returns entries created within the last `days` days, newest
// first. days <= 0 returns everything.
func (db *DB) ListLogs(days int) ([]LogEntry, error) {
	query := `
		SELECT id, content, category, tags, importance, embed_state, created_at, updated_at
		FROM logs
	`
	var args []any
	if days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days).UnixMilli()
		query += " WHERE created_at >= ?"
		args = append(args, cutoff)
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

// ListPending returns entries still waiting for an embedding, oldest first.
func (db *DB) ListPending() ([]LogEntry, error) {
	rows, err := db.Query(`
		SELECT id, content, category, tags, importance, embed_state, created_at, updated_at
		FROM logs WHERE embed_state = 'pending'
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

// GetLogsByIDs returns entries for the given ids, in created_at DESC order.
// Ids with no matching row are simply absent from the result.
func (db *DB) GetLogsByIDs(ids []string) ([]LogEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, content, category, tags, importance, embed_state, created_at, updated_at
		FROM logs WHERE id IN (%s)
		ORDER BY created_at DESC, id ASC
	`, placeholders)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get logs by ids: %w", err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

// CountByCategory returns entry counts per category within a day window.
func (db *DB) CountByCategory(days int) (map[string]int, error) {
	query := "SELECT category, COUNT(*) FROM logs"
	var args []any
	if days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days).UnixMilli()
		query += " WHERE created_at >= ?"
		args = append(args, cutoff)
	}
	query += " GROUP BY category"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

// CountLogs returns the total number of log entries.
func (db *DB) CountLogs() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM logs").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (*LogEntry, error) {
	var e LogEntry
	var tags string
	if err := row.Scan(&e.ID, &e.Content, &e.Category, &tags,
		&e.Importance, &e.EmbedState, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &e, nil
}

func scanLogs(rows *sql.Rows) ([]LogEntry, error) {
	var entries []LogEntry
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}
