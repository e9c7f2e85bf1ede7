package rules

import (
	"encoding/json"
	"strings"
)

// ShiftLogPayload is the semi-structured payload of a shift_log event,
// submitted by the staff app at shift end.
type ShiftLogPayload struct {
	Checklist     map[string]any `json:"checklist"`
	IncidentType  string         `json:"incident_type"`
	IncidentNote  string         `json:"incident_note"`
	LateMinutes   int            `json:"late_minutes"`
	Mood          string         `json:"mood"` // OK, BUSY, FIXED, OPEN, OVER
	DurationHours float64        `json:"duration_hours"`
}

// LeaderReportPayload is the payload of a leader_report event, submitted
// by the shift leader. Shift times are "HH:MM" strings; duration is derived.
type LeaderReportPayload struct {
	Checklist        map[string]any `json:"checklist"`
	HasPeak          bool           `json:"has_peak"`
	HasOutOfStock    bool           `json:"has_out_of_stock"`
	HasCustomerIssue bool           `json:"has_customer_issue"`
	IncidentType     string         `json:"incident_type"`
	Initiative       string         `json:"initiative"`
	ShiftStart       string         `json:"shift_start"`
	ShiftEnd         string         `json:"shift_end"`
	Mood             int            `json:"mood"` // 1..5
}

// FiveSPayload is the payload of a signal_5s area check event.
type FiveSPayload struct {
	Area   string `json:"area"`
	Result string `json:"result"` // PASS or FAIL
	Note   string `json:"note"`
}

// FoodSafetyPayload is the payload of a food_safety_log temperature reading.
type FoodSafetyPayload struct {
	Item         string  `json:"item"`
	Temperature  float64 `json:"temperature"`
	ThresholdMin float64 `json:"threshold_min"`
	ThresholdMax float64 `json:"threshold_max"`
}

// checklistCounts tallies a checklist. Items are pass unless marked
// "no"/"ng"/"fail" or boolean false.
func checklistCounts(checklist map[string]any) (total, passed, failed int) {
	for _, v := range checklist {
		total++
		if checklistItemFailed(v) {
			failed++
		} else {
			passed++
		}
	}
	return
}

func checklistItemFailed(v any) bool {
	switch t := v.(type) {
	case bool:
		return !t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "no", "ng", "fail", "false":
			return true
		}
	}
	return false
}

// metaJSON encodes rule metadata, falling back to "{}" on marshal failure.
func metaJSON(m map[string]any) string {
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}
