// Package ledger provides an append-only history of reconciliations.
// It answers "what did truenasctl change, and when".
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventApplied EventType = "applied"
	EventPlanned EventType = "planned"
	EventFailed  EventType = "failed"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64
	RunID     string
	EventType EventType
	Timestamp time.Time
	Kind      string
	Key       string
	Action    string
	Changed   bool
	Message   string
	Error     string
	Payload   map[string]any
}

// Ledger provides append-only event logging
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Append adds a new event to the ledger. A zero Timestamp is set to now.
func (l *Ledger) Append(entry Entry) error {
	var payloadJSON []byte
	var err error

	if entry.Payload != nil {
		payloadJSON, err = json.Marshal(entry.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}

	_, err = l.db.Exec(`
		INSERT INTO reconcile_ledger
			(run_id, event_type, timestamp, kind, resource_key, action, changed, message, error, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.RunID, string(entry.EventType), ts.UTC().Unix(), entry.Kind, entry.Key, entry.Action,
		entry.Changed, entry.Message, entry.Error, string(payloadJSON))

	return err
}

// Recent returns the newest entries first
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, run_id, event_type, timestamp, kind, resource_key, action, changed, message, error, payload
		FROM reconcile_ledger
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// ByRun returns the entries of one run in the order they were recorded
func (l *Ledger) ByRun(runID string) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, run_id, event_type, timestamp, kind, resource_key, action, changed, message, error, payload
		FROM reconcile_ledger
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).Unix()
	result, err := l.db.Exec(`
		DELETE FROM reconcile_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr, message, errText sql.NullString
		var timestamp int64

		err := rows.Scan(
			&entry.ID, &entry.RunID, &entry.EventType, &timestamp, &entry.Kind, &entry.Key,
			&entry.Action, &entry.Changed, &message, &errText, &payloadStr,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		if message.Valid {
			entry.Message = message.String
		}
		if errText.Valid {
			entry.Error = errText.String
		}

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
