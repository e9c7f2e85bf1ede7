package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Severity levels, ordered from least to most severe.
const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Signal is a derived anomaly or observation produced from exactly one raw event.
type Signal struct {
	ID            int64     `json:"id"`
	SourceEventID int64     `json:"source_event_id"`
	RuleCode      string    `json:"rule_code"`
	Severity      string    `json:"severity"`
	Metadata      string    `json:"metadata"`
	IsValid       bool      `json:"is_valid"`
	CreatedAt     time.Time `json:"created_at"`
}

// SignalWithEvent joins a signal to its source event's staff/store/time fields,
// which the aggregators filter on.
type SignalWithEvent struct {
	Signal
	StaffID   int64     `json:"staff_id"`
	StoreID   int64     `json:"store_id"`
	EventType string    `json:"event_type"`
	EventTime time.Time `json:"event_time"`
}

func (db *DB) InsertSignal(s *Signal) error {
	if s.Metadata == "" {
		s.Metadata = "{}"
	}
	err := db.QueryRow(db.Q(`INSERT INTO signals (source_event_id, rule_code, severity, metadata, is_valid) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		s.SourceEventID, s.RuleCode, s.Severity, s.Metadata, s.IsValid).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (db *DB) GetSignal(id int64) (*Signal, error) {
	row := db.QueryRow(db.Q(`SELECT id, source_event_id, rule_code, severity, metadata, is_valid, created_at FROM signals WHERE id=?`), id)
	return scanSignal(row)
}

func scanSignal(row interface{ Scan(...any) error }) (*Signal, error) {
	var s Signal
	var createdAt any
	if err := row.Scan(&s.ID, &s.SourceEventID, &s.RuleCode, &s.Severity, &s.Metadata, &s.IsValid, &createdAt); err != nil {
		return nil, err
	}
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func (db *DB) ListEventSignals(eventID int64) ([]*Signal, error) {
	rows, err := db.Query(db.Q(`SELECT id, source_event_id, rule_code, severity, metadata, is_valid, created_at FROM signals WHERE source_event_id=? ORDER BY id`), eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var signals []*Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

const signalJoinCols = `s.id, s.source_event_id, s.rule_code, s.severity, s.metadata, s.is_valid, s.created_at, e.staff_id, e.store_id, e.event_type, e.event_time`

func scanSignalsWithEvent(rows *sql.Rows) ([]*SignalWithEvent, error) {
	var signals []*SignalWithEvent
	for rows.Next() {
		var s SignalWithEvent
		var createdAt, eventTime any
		if err := rows.Scan(&s.ID, &s.SourceEventID, &s.RuleCode, &s.Severity, &s.Metadata, &s.IsValid, &createdAt,
			&s.StaffID, &s.StoreID, &s.EventType, &eventTime); err != nil {
			return nil, err
		}
		s.CreatedAt = parseTime(createdAt)
		s.EventTime = parseTime(eventTime)
		signals = append(signals, &s)
	}
	return signals, rows.Err()
}

// ListStaffSignals returns valid signals for one staff member in a day window.
func (db *DB) ListStaffSignals(staffID int64, day string) ([]*SignalWithEvent, error) {
	start, end, err := DayWindow(day)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM signals s JOIN raw_events e ON e.id=s.source_event_id WHERE e.staff_id=? AND e.event_time>=? AND e.event_time<? AND s.is_valid=? ORDER BY s.id`, signalJoinCols)),
		staffID, start, end, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignalsWithEvent(rows)
}

// ListStoreSignals returns valid signals for one store in a day window.
func (db *DB) ListStoreSignals(storeID int64, day string) ([]*SignalWithEvent, error) {
	start, end, err := DayWindow(day)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM signals s JOIN raw_events e ON e.id=s.source_event_id WHERE e.store_id=? AND e.event_time>=? AND e.event_time<? AND s.is_valid=? ORDER BY s.id`, signalJoinCols)),
		storeID, start, end, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignalsWithEvent(rows)
}

func (db *DB) ListRecentSignals(limit int) ([]*SignalWithEvent, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM signals s JOIN raw_events e ON e.id=s.source_event_id ORDER BY s.id DESC LIMIT ?`, signalJoinCols)), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignalsWithEvent(rows)
}

// InvalidateSignal soft-deletes a signal so aggregation ignores it.
func (db *DB) InvalidateSignal(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE signals SET is_valid=? WHERE id=?`), false, id)
	return err
}
