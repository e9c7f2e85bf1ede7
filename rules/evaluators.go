package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"opscore/store"
)

// evalLateArrival emits R01 when a shift log reports minutes of lateness.
func evalLateArrival(ev *store.RawEvent) ([]*store.Signal, error) {
	var p ShiftLogPayload
	if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
		return nil, fmt.Errorf("decode shift log: %w", err)
	}
	if p.LateMinutes <= 0 {
		return nil, nil
	}
	severity := store.SeverityLow
	switch {
	case p.LateMinutes > 30:
		severity = store.SeverityHigh
	case p.LateMinutes > 10:
		severity = store.SeverityMedium
	}
	return []*store.Signal{{
		RuleCode: CodeLateArrival,
		Severity: severity,
		Metadata: metaJSON(map[string]any{"late_minutes": p.LateMinutes}),
	}}, nil
}

// evalExecutionNeglect emits R12 for checklist items marked not done.
// Staff severity scales with fail count; a leader checklist miss is always high.
func evalExecutionNeglect(ev *store.RawEvent) ([]*store.Signal, error) {
	checklist, err := eventChecklist(ev)
	if err != nil {
		return nil, err
	}
	_, _, failed := checklistCounts(checklist)
	if failed == 0 {
		return nil, nil
	}
	severity := store.SeverityMedium
	if ev.EventType == store.EventLeaderReport || failed > 2 {
		severity = store.SeverityHigh
	}
	return []*store.Signal{{
		RuleCode: CodeExecutionNeglect,
		Severity: severity,
		Metadata: metaJSON(map[string]any{"fail_count": failed}),
	}}, nil
}

// evalFalseCompletion emits R11 when every checklist item passes but an
// incident was reported anyway: "all OK" contradicts the incident.
func evalFalseCompletion(ev *store.RawEvent) ([]*store.Signal, error) {
	checklist, err := eventChecklist(ev)
	if err != nil {
		return nil, err
	}
	incident, err := eventIncident(ev)
	if err != nil {
		return nil, err
	}
	total, _, failed := checklistCounts(checklist)
	if total == 0 || failed > 0 || incident == "" {
		return nil, nil
	}
	return []*store.Signal{{
		RuleCode: CodeFalseCompletion,
		Severity: store.SeverityHigh,
		Metadata: metaJSON(map[string]any{"incident_type": incident}),
	}}, nil
}

// evalIncidentReport emits R17 whenever a shift log or leader report
// carries a non-empty incident field.
func evalIncidentReport(ev *store.RawEvent) ([]*store.Signal, error) {
	incident, err := eventIncident(ev)
	if err != nil {
		return nil, err
	}
	if incident == "" {
		return nil, nil
	}
	return []*store.Signal{{
		RuleCode: CodeIncidentReport,
		Severity: store.SeverityHigh,
		Metadata: metaJSON(map[string]any{"incident_type": incident}),
	}}, nil
}

// evalLeaderPressure emits R22 from weighted operational pressure flags:
// peak=1, out-of-stock=2, customer-issue=3. Threshold is a sum of 3.
func evalLeaderPressure(ev *store.RawEvent) ([]*store.Signal, error) {
	var p LeaderReportPayload
	if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
		return nil, fmt.Errorf("decode leader report: %w", err)
	}
	risk := 0
	if p.HasPeak {
		risk += 1
	}
	if p.HasOutOfStock {
		risk += 2
	}
	if p.HasCustomerIssue {
		risk += 3
	}
	if risk < 3 {
		return nil, nil
	}
	severity := store.SeverityMedium
	if risk > 4 {
		severity = store.SeverityHigh
	}
	return []*store.Signal{{
		RuleCode: CodeLeaderPressure,
		Severity: severity,
		Metadata: metaJSON(map[string]any{"risk_score": risk}),
	}}, nil
}

// evalInitiative emits R31 when a leader report commends initiative.
// Downstream scoring treats R31 as a positive override regardless of severity.
func evalInitiative(ev *store.RawEvent) ([]*store.Signal, error) {
	var p LeaderReportPayload
	if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
		return nil, fmt.Errorf("decode leader report: %w", err)
	}
	if strings.TrimSpace(p.Initiative) == "" {
		return nil, nil
	}
	return []*store.Signal{{
		RuleCode: CodeInitiative,
		Severity: store.SeverityInfo,
		Metadata: metaJSON(map[string]any{"note": p.Initiative}),
	}}, nil
}

// evalAreaCheckFail emits R25 for a failed 5S check. A failure in a PREP
// area is high severity, elsewhere medium.
func evalAreaCheckFail(ev *store.RawEvent) ([]*store.Signal, error) {
	var p FiveSPayload
	if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
		return nil, fmt.Errorf("decode 5s check: %w", err)
	}
	if !strings.EqualFold(p.Result, "FAIL") {
		return nil, nil
	}
	severity := store.SeverityMedium
	if strings.EqualFold(p.Area, "PREP") {
		severity = store.SeverityHigh
	}
	return []*store.Signal{{
		RuleCode: CodeAreaCheckFail,
		Severity: severity,
		Metadata: metaJSON(map[string]any{"area": p.Area, "result": strings.ToUpper(p.Result)}),
	}}, nil
}

// evalTempBreach emits FS-01 when a temperature reading falls outside
// [threshold_min, threshold_max]. Always critical.
func evalTempBreach(ev *store.RawEvent) ([]*store.Signal, error) {
	var p FoodSafetyPayload
	if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
		return nil, fmt.Errorf("decode food safety log: %w", err)
	}
	if p.Temperature >= p.ThresholdMin && p.Temperature <= p.ThresholdMax {
		return nil, nil
	}
	return []*store.Signal{{
		RuleCode: CodeTempBreach,
		Severity: store.SeverityCritical,
		Metadata: metaJSON(map[string]any{
			"item":          p.Item,
			"temperature":   p.Temperature,
			"threshold_min": p.ThresholdMin,
			"threshold_max": p.ThresholdMax,
			"status":        "OUT_OF_RANGE",
		}),
	}}, nil
}

// eventChecklist decodes the checklist from either submission shape.
func eventChecklist(ev *store.RawEvent) (map[string]any, error) {
	switch ev.EventType {
	case store.EventShiftLog:
		var p ShiftLogPayload
		if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
			return nil, fmt.Errorf("decode shift log: %w", err)
		}
		return p.Checklist, nil
	case store.EventLeaderReport:
		var p LeaderReportPayload
		if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
			return nil, fmt.Errorf("decode leader report: %w", err)
		}
		return p.Checklist, nil
	}
	return nil, nil
}

func eventIncident(ev *store.RawEvent) (string, error) {
	switch ev.EventType {
	case store.EventShiftLog:
		var p ShiftLogPayload
		if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
			return "", fmt.Errorf("decode shift log: %w", err)
		}
		return strings.TrimSpace(p.IncidentType), nil
	case store.EventLeaderReport:
		var p LeaderReportPayload
		if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
			return "", fmt.Errorf("decode leader report: %w", err)
		}
		return strings.TrimSpace(p.IncidentType), nil
	}
	return "", nil
}
