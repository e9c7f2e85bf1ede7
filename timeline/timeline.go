// Package timeline merges staff shift logs and leader reports, which are
// recorded in different raw shapes, into one normalized activity list for
// dashboard read paths.
package timeline

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"opscore/rules"
	"opscore/store"
)

// ActivityRecord is the normalized form of one shift log or leader report.
type ActivityRecord struct {
	Source        string    `json:"source"` // shift_log or leader_report
	EventID       int64     `json:"event_id"`
	StaffID       int64     `json:"staff_id"`
	StoreID       int64     `json:"store_id"`
	EventTime     time.Time `json:"event_time"`
	DurationHours float64   `json:"duration_hours"`
	Mood          int       `json:"mood"` // 1 (worst) .. 5 (best)
	Incident      string    `json:"incident,omitempty"`
}

type Merger struct {
	db *store.DB
}

func NewMerger(db *store.DB) *Merger {
	return &Merger{db: db}
}

// MergedActivity returns both sources normalized and sorted newest-first.
// Both sources carry explicit staff/time identifiers, so the merge is a
// plain concatenate-and-sort with no windowed join.
func (m *Merger) MergedActivity(staffID int64, fromDay, toDay string) ([]*ActivityRecord, error) {
	shiftLogs, err := m.db.ListStaffEventsRange(staffID, fromDay, toDay, store.EventShiftLog)
	if err != nil {
		return nil, fmt.Errorf("list shift logs: %w", err)
	}
	reports, err := m.db.ListStaffEventsRange(staffID, fromDay, toDay, store.EventLeaderReport)
	if err != nil {
		return nil, fmt.Errorf("list leader reports: %w", err)
	}

	records := make([]*ActivityRecord, 0, len(shiftLogs)+len(reports))
	for _, ev := range shiftLogs {
		rec, err := normalizeShiftLog(ev)
		if err != nil {
			log.Printf("timeline: shift log event %d: %v", ev.ID, err)
			continue
		}
		records = append(records, rec)
	}
	for _, ev := range reports {
		rec, err := normalizeLeaderReport(ev)
		if err != nil {
			log.Printf("timeline: leader report event %d: %v", ev.ID, err)
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].EventTime.After(records[j].EventTime)
	})
	return records, nil
}

// shiftMoodScale maps the staff app's mood enum onto the leader report's
// 1..5 numeric scale.
var shiftMoodScale = map[string]int{
	"OK":    5,
	"BUSY":  4,
	"FIXED": 3,
	"OPEN":  2,
	"OVER":  1,
}

func normalizeShiftLog(ev *store.RawEvent) (*ActivityRecord, error) {
	var p rules.ShiftLogPayload
	if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	mood, ok := shiftMoodScale[strings.ToUpper(strings.TrimSpace(p.Mood))]
	if !ok {
		mood = 3
	}
	return &ActivityRecord{
		Source:        store.EventShiftLog,
		EventID:       ev.ID,
		StaffID:       ev.StaffID,
		StoreID:       ev.StoreID,
		EventTime:     ev.EventTime,
		DurationHours: p.DurationHours,
		Mood:          mood,
		Incident:      p.IncidentType,
	}, nil
}

func normalizeLeaderReport(ev *store.RawEvent) (*ActivityRecord, error) {
	var p rules.LeaderReportPayload
	if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	duration, err := ShiftDurationHours(p.ShiftStart, p.ShiftEnd)
	if err != nil {
		return nil, err
	}
	mood := p.Mood
	if mood < 1 {
		mood = 1
	} else if mood > 5 {
		mood = 5
	}
	return &ActivityRecord{
		Source:        store.EventLeaderReport,
		EventID:       ev.ID,
		StaffID:       ev.StaffID,
		StoreID:       ev.StoreID,
		EventTime:     ev.EventTime,
		DurationHours: duration,
		Mood:          mood,
		Incident:      p.IncidentType,
	}, nil
}

// ShiftDurationHours derives hours from "HH:MM" start/end strings. An end
// before the start is an overnight shift, so a day is added.
func ShiftDurationHours(start, end string) (float64, error) {
	startMin, err := clockMinutes(start)
	if err != nil {
		return 0, fmt.Errorf("shift start: %w", err)
	}
	endMin, err := clockMinutes(end)
	if err != nil {
		return 0, fmt.Errorf("shift end: %w", err)
	}
	minutes := endMin - startMin
	if minutes < 0 {
		minutes += 24 * 60
	}
	return float64(minutes) / 60, nil
}

func clockMinutes(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return h*60 + m, nil
}
