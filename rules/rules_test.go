package rules

import (
	"encoding/json"
	"testing"

	"opscore/store"
)

func extractOne(t *testing.T, eventType, payload string) []*store.Signal {
	t.Helper()
	reg := DefaultRegistry()
	return reg.Extract(&store.RawEvent{ID: 1, EventType: eventType, Payload: payload})
}

func findSignal(signals []*store.Signal, code string) *store.Signal {
	for _, s := range signals {
		if s.RuleCode == code {
			return s
		}
	}
	return nil
}

func metaInt(t *testing.T, s *store.Signal, key string) int {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s.Metadata), &m); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	f, ok := m[key].(float64)
	if !ok {
		t.Fatalf("metadata %q missing: %s", key, s.Metadata)
	}
	return int(f)
}

func TestLateArrivalSeverityTiers(t *testing.T) {
	cases := []struct {
		late     int
		severity string
	}{
		{5, store.SeverityLow},
		{10, store.SeverityLow},
		{11, store.SeverityMedium},
		{30, store.SeverityMedium},
		{31, store.SeverityHigh},
	}
	for _, tc := range cases {
		raw, _ := json.Marshal(map[string]any{"late_minutes": tc.late})
		signals := extractOne(t, store.EventShiftLog, string(raw))
		sig := findSignal(signals, CodeLateArrival)
		if sig == nil {
			t.Fatalf("late=%d: no R01 signal", tc.late)
		}
		if sig.Severity != tc.severity {
			t.Errorf("late=%d: severity = %q, want %q", tc.late, sig.Severity, tc.severity)
		}
		if got := metaInt(t, sig, "late_minutes"); got != tc.late {
			t.Errorf("late=%d: metadata = %d", tc.late, got)
		}
	}
}

func TestOnTimeArrivalNoSignal(t *testing.T) {
	signals := extractOne(t, store.EventShiftLog, `{"late_minutes":0,"checklist":{"fryer":"yes"}}`)
	if sig := findSignal(signals, CodeLateArrival); sig != nil {
		t.Errorf("unexpected R01 signal: %+v", sig)
	}
}

func TestExecutionNeglectTwoFails(t *testing.T) {
	payload := `{"checklist":{"fryer_clean":"no","stock_rotated":"no","floor_mopped":"yes"}}`
	signals := extractOne(t, store.EventShiftLog, payload)

	sig := findSignal(signals, CodeExecutionNeglect)
	if sig == nil {
		t.Fatal("no R12 signal")
	}
	if sig.Severity != store.SeverityMedium {
		t.Errorf("severity = %q, want medium for 2 fails", sig.Severity)
	}
	if got := metaInt(t, sig, "fail_count"); got != 2 {
		t.Errorf("fail_count = %d, want 2", got)
	}

	// Exactly one R12 signal regardless of how many items failed.
	count := 0
	for _, s := range signals {
		if s.RuleCode == CodeExecutionNeglect {
			count++
		}
	}
	if count != 1 {
		t.Errorf("R12 signals = %d, want 1", count)
	}
}

func TestExecutionNeglectManyFailsHigh(t *testing.T) {
	payload := `{"checklist":{"a":"no","b":"no","c":"no","d":"yes"}}`
	signals := extractOne(t, store.EventShiftLog, payload)
	sig := findSignal(signals, CodeExecutionNeglect)
	if sig == nil {
		t.Fatal("no R12 signal")
	}
	if sig.Severity != store.SeverityHigh {
		t.Errorf("severity = %q, want high for 3 fails", sig.Severity)
	}
}

func TestExecutionNeglectLeaderAlwaysHigh(t *testing.T) {
	payload := `{"checklist":{"closing_cash":"ng"}}`
	signals := extractOne(t, store.EventLeaderReport, payload)
	sig := findSignal(signals, CodeExecutionNeglect)
	if sig == nil {
		t.Fatal("no R12 signal")
	}
	if sig.Severity != store.SeverityHigh {
		t.Errorf("severity = %q, want high for leader report", sig.Severity)
	}
}

func TestFalseCompletionAllPassWithIncident(t *testing.T) {
	payload := `{"checklist":{"fryer":"yes","stock":"yes"},"incident_type":"equipment_failure"}`
	signals := extractOne(t, store.EventShiftLog, payload)

	sig := findSignal(signals, CodeFalseCompletion)
	if sig == nil {
		t.Fatal("no R11 signal")
	}
	if sig.Severity != store.SeverityHigh {
		t.Errorf("severity = %q, want high", sig.Severity)
	}
	// The incident itself still fires R17 alongside.
	if findSignal(signals, CodeIncidentReport) == nil {
		t.Error("expected R17 alongside R11")
	}
}

func TestNoFalseCompletionWhenChecklistHonest(t *testing.T) {
	// A failing item with an incident is consistent, not contradictory.
	payload := `{"checklist":{"fryer":"no"},"incident_type":"equipment_failure"}`
	signals := extractOne(t, store.EventShiftLog, payload)
	if findSignal(signals, CodeFalseCompletion) != nil {
		t.Error("R11 should not fire when a checklist item failed")
	}
	if findSignal(signals, CodeExecutionNeglect) == nil {
		t.Error("R12 should fire for the failed item")
	}
	if findSignal(signals, CodeIncidentReport) == nil {
		t.Error("R17 should fire for the incident")
	}
}

func TestLeaderPressureThreshold(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		want     string // "" = no signal
		riskWant int
	}{
		{"peak only", `{"has_peak":true}`, "", 0},
		{"oos only", `{"has_out_of_stock":true}`, "", 0},
		{"peak+oos", `{"has_peak":true,"has_out_of_stock":true}`, store.SeverityMedium, 3},
		{"customer only", `{"has_customer_issue":true}`, store.SeverityMedium, 3},
		{"customer+oos", `{"has_customer_issue":true,"has_out_of_stock":true}`, store.SeverityHigh, 5},
		{"all three", `{"has_peak":true,"has_out_of_stock":true,"has_customer_issue":true}`, store.SeverityHigh, 6},
	}
	for _, tc := range cases {
		signals := extractOne(t, store.EventLeaderReport, tc.payload)
		sig := findSignal(signals, CodeLeaderPressure)
		if tc.want == "" {
			if sig != nil {
				t.Errorf("%s: unexpected R22 signal", tc.name)
			}
			continue
		}
		if sig == nil {
			t.Errorf("%s: no R22 signal", tc.name)
			continue
		}
		if sig.Severity != tc.want {
			t.Errorf("%s: severity = %q, want %q", tc.name, sig.Severity, tc.want)
		}
		if got := metaInt(t, sig, "risk_score"); got != tc.riskWant {
			t.Errorf("%s: risk_score = %d, want %d", tc.name, got, tc.riskWant)
		}
	}
}

func TestInitiativeCredit(t *testing.T) {
	signals := extractOne(t, store.EventLeaderReport, `{"initiative":"reorganized walk-in during lull"}`)
	sig := findSignal(signals, CodeInitiative)
	if sig == nil {
		t.Fatal("no R31 signal")
	}
	if sig.Severity != store.SeverityInfo {
		t.Errorf("severity = %q, want info", sig.Severity)
	}

	none := extractOne(t, store.EventLeaderReport, `{"initiative":"   "}`)
	if findSignal(none, CodeInitiative) != nil {
		t.Error("whitespace-only initiative should not fire R31")
	}
}

func TestAreaCheckFail(t *testing.T) {
	prep := extractOne(t, store.EventSignal5S, `{"area":"PREP","result":"FAIL"}`)
	sig := findSignal(prep, CodeAreaCheckFail)
	if sig == nil {
		t.Fatal("no R25 signal")
	}
	if sig.Severity != store.SeverityHigh {
		t.Errorf("PREP severity = %q, want high", sig.Severity)
	}

	lobby := extractOne(t, store.EventSignal5S, `{"area":"LOBBY","result":"fail"}`)
	sig = findSignal(lobby, CodeAreaCheckFail)
	if sig == nil {
		t.Fatal("no R25 signal for lowercase result")
	}
	if sig.Severity != store.SeverityMedium {
		t.Errorf("LOBBY severity = %q, want medium", sig.Severity)
	}

	pass := extractOne(t, store.EventSignal5S, `{"area":"PREP","result":"PASS"}`)
	if findSignal(pass, CodeAreaCheckFail) != nil {
		t.Error("PASS result should not fire R25")
	}
}

func TestTempBreachCritical(t *testing.T) {
	payload := `{"item":"walk-in cooler","temperature":10,"threshold_min":0,"threshold_max":5}`
	signals := extractOne(t, store.EventFoodSafetyLog, payload)
	sig := findSignal(signals, CodeTempBreach)
	if sig == nil {
		t.Fatal("no FS-01 signal")
	}
	if sig.Severity != store.SeverityCritical {
		t.Errorf("severity = %q, want critical", sig.Severity)
	}
	var m map[string]any
	json.Unmarshal([]byte(sig.Metadata), &m)
	if m["status"] != "OUT_OF_RANGE" {
		t.Errorf("status = %v, want OUT_OF_RANGE", m["status"])
	}

	inRange := extractOne(t, store.EventFoodSafetyLog,
		`{"item":"walk-in cooler","temperature":3,"threshold_min":0,"threshold_max":5}`)
	if findSignal(inRange, CodeTempBreach) != nil {
		t.Error("in-range reading should not fire FS-01")
	}
}

func TestTempBreachBoundariesInclusive(t *testing.T) {
	for _, temp := range []float64{0, 5} {
		raw, _ := json.Marshal(map[string]any{"item": "fridge", "temperature": temp, "threshold_min": 0, "threshold_max": 5})
		signals := extractOne(t, store.EventFoodSafetyLog, string(raw))
		if findSignal(signals, CodeTempBreach) != nil {
			t.Errorf("temp=%v: boundary reading should not fire FS-01", temp)
		}
	}
}

func TestMalformedPayloadFailOpen(t *testing.T) {
	// A garbage payload produces no signals and no panic; ingestion proceeds.
	signals := extractOne(t, store.EventShiftLog, `{not json`)
	if len(signals) != 0 {
		t.Errorf("signals = %d, want 0", len(signals))
	}
}

func TestChecklistBooleanValues(t *testing.T) {
	// Boolean false counts as a failed item, true as passed.
	payload := `{"checklist":{"fryer":false,"stock":true}}`
	signals := extractOne(t, store.EventShiftLog, payload)
	sig := findSignal(signals, CodeExecutionNeglect)
	if sig == nil {
		t.Fatal("no R12 signal for boolean false")
	}
	if got := metaInt(t, sig, "fail_count"); got != 1 {
		t.Errorf("fail_count = %d, want 1", got)
	}
}

func TestExtractSetsSourceAndValidity(t *testing.T) {
	reg := DefaultRegistry()
	ev := &store.RawEvent{ID: 42, EventType: store.EventShiftLog, Payload: `{"late_minutes":20}`}
	signals := reg.Extract(ev)
	if len(signals) == 0 {
		t.Fatal("expected at least one signal")
	}
	for _, s := range signals {
		if s.SourceEventID != 42 {
			t.Errorf("SourceEventID = %d, want 42", s.SourceEventID)
		}
		if !s.IsValid {
			t.Error("IsValid should default to true")
		}
	}
}

func TestRegisterCustomRule(t *testing.T) {
	reg := DefaultRegistry()
	reg.Register(Rule{
		Code:       "R99",
		EventTypes: []string{store.EventShiftLog},
		Eval: func(ev *store.RawEvent) ([]*store.Signal, error) {
			return []*store.Signal{{RuleCode: "R99", Severity: store.SeverityInfo}}, nil
		},
	})
	signals := reg.Extract(&store.RawEvent{ID: 1, EventType: store.EventShiftLog, Payload: `{}`})
	if findSignal(signals, "R99") == nil {
		t.Error("custom rule did not run")
	}
}
