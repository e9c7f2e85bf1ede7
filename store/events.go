package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Event types for raw operational facts.
const (
	EventShiftLog      = "shift_log"
	EventLeaderReport  = "leader_report"
	EventSignal5S      = "signal_5s"
	EventFoodSafetyLog = "food_safety_log"
)

// ValidEventType reports whether t is an ingestible event type. Anything
// outside this set would be persisted but never match a rule, producing a
// silent dead row, so intake paths reject it up front.
func ValidEventType(t string) bool {
	switch t {
	case EventShiftLog, EventLeaderReport, EventSignal5S, EventFoodSafetyLog:
		return true
	}
	return false
}

// RawEvent is an immutable operational fact. The table is append-only:
// no update or delete statements exist for it.
type RawEvent struct {
	ID        int64     `json:"id"`
	EventType string    `json:"event_type"`
	StaffID   int64     `json:"staff_id"`
	StoreID   int64     `json:"store_id"`
	EventTime time.Time `json:"event_time"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

const timeLayout = "2006-01-02 15:04:05"

// fmtTime renders a timestamp the way both dialects store it: UTC seconds.
func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// DayWindow returns the [start, end) timestamp strings for a "YYYY-MM-DD" day in UTC.
func DayWindow(day string) (string, string, error) {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		return "", "", fmt.Errorf("parse day %q: %w", day, err)
	}
	return fmtTime(d), fmtTime(d.AddDate(0, 0, 1)), nil
}

func (db *DB) InsertRawEvent(ev *RawEvent) error {
	if ev.Payload == "" {
		ev.Payload = "{}"
	}
	if ev.EventTime.IsZero() {
		ev.EventTime = time.Now()
	}
	err := db.QueryRow(db.Q(`INSERT INTO raw_events (event_type, staff_id, store_id, event_time, payload) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		ev.EventType, ev.StaffID, ev.StoreID, fmtTime(ev.EventTime), ev.Payload).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("insert raw event: %w", err)
	}
	return nil
}

const eventSelectCols = `id, event_type, staff_id, store_id, event_time, payload, created_at`

func scanRawEvent(row interface{ Scan(...any) error }) (*RawEvent, error) {
	var ev RawEvent
	var eventTime, createdAt any
	err := row.Scan(&ev.ID, &ev.EventType, &ev.StaffID, &ev.StoreID, &eventTime, &ev.Payload, &createdAt)
	if err != nil {
		return nil, err
	}
	ev.EventTime = parseTime(eventTime)
	ev.CreatedAt = parseTime(createdAt)
	return &ev, nil
}

func scanRawEvents(rows *sql.Rows) ([]*RawEvent, error) {
	var events []*RawEvent
	for rows.Next() {
		ev, err := scanRawEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (db *DB) GetRawEvent(id int64) (*RawEvent, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM raw_events WHERE id=?`, eventSelectCols)), id)
	return scanRawEvent(row)
}

// ListStaffEvents returns a staff member's events in the [day 00:00, day+1 00:00) UTC window.
func (db *DB) ListStaffEvents(staffID int64, day string) ([]*RawEvent, error) {
	start, end, err := DayWindow(day)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM raw_events WHERE staff_id=? AND event_time>=? AND event_time<? ORDER BY event_time`, eventSelectCols)),
		staffID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRawEvents(rows)
}

// ListStaffEventsRange returns a staff member's events of the given type across a day range.
// eventType may be empty to return all types.
func (db *DB) ListStaffEventsRange(staffID int64, fromDay, toDay, eventType string) ([]*RawEvent, error) {
	start, _, err := DayWindow(fromDay)
	if err != nil {
		return nil, err
	}
	_, end, err := DayWindow(toDay)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT %s FROM raw_events WHERE staff_id=? AND event_time>=? AND event_time<?`, eventSelectCols)
	args := []any{staffID, start, end}
	if eventType != "" {
		q += ` AND event_type=?`
		args = append(args, eventType)
	}
	q += ` ORDER BY event_time DESC`
	rows, err := db.Query(db.Q(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRawEvents(rows)
}

func (db *DB) ListStoreEvents(storeID int64, day string) ([]*RawEvent, error) {
	start, end, err := DayWindow(day)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM raw_events WHERE store_id=? AND event_time>=? AND event_time<? ORDER BY event_time`, eventSelectCols)),
		storeID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRawEvents(rows)
}

func (db *DB) ListRecentEvents(limit int) ([]*RawEvent, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM raw_events ORDER BY id DESC LIMIT ?`, eventSelectCols)), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRawEvents(rows)
}

// ListActiveStaffIDs returns staff ids with at least one event in the day window.
func (db *DB) ListActiveStaffIDs(day string) ([]int64, error) {
	start, end, err := DayWindow(day)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(db.Q(`SELECT DISTINCT staff_id FROM raw_events WHERE event_time>=? AND event_time<?`), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
