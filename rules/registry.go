package rules

import (
	"log"

	"opscore/store"
)

// Rule codes. Prefix conventions group rules into scoring buckets:
// R0x attendance, R1x execution, R2x incident, R25/R26 compliance,
// FS-xx food safety (compliance bucket).
const (
	CodeLateArrival      = "R01"
	CodeFalseCompletion  = "R11"
	CodeExecutionNeglect = "R12"
	CodeIncidentReport   = "R17"
	CodeLeaderPressure   = "R22"
	CodeAreaCheckFail    = "R25"
	CodeInitiative       = "R31"
	CodeTempBreach       = "FS-01"
)

// Evaluator classifies a single raw event into zero or more signals.
// It must be a pure function of the event: no cross-event state.
type Evaluator func(ev *store.RawEvent) ([]*store.Signal, error)

// Rule binds a code to its evaluator and the event types it applies to.
type Rule struct {
	Code        string
	Description string
	EventTypes  []string
	Eval        Evaluator
}

// Registry holds the active rule set. Rules are independent: one rule's
// failure never blocks another's evaluation or the parent event's ingestion.
type Registry struct {
	rules []Rule
}

func NewRegistry(rules ...Rule) *Registry {
	return &Registry{rules: rules}
}

// DefaultRegistry returns the production rule set.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Rule{
			Code:        CodeLateArrival,
			Description: "late clock-in against scheduled shift start",
			EventTypes:  []string{store.EventShiftLog},
			Eval:        evalLateArrival,
		},
		Rule{
			Code:        CodeExecutionNeglect,
			Description: "checklist items marked not done",
			EventTypes:  []string{store.EventShiftLog, store.EventLeaderReport},
			Eval:        evalExecutionNeglect,
		},
		Rule{
			Code:        CodeFalseCompletion,
			Description: "all-pass checklist contradicted by a reported incident",
			EventTypes:  []string{store.EventShiftLog, store.EventLeaderReport},
			Eval:        evalFalseCompletion,
		},
		Rule{
			Code:        CodeIncidentReport,
			Description: "incident logged during shift",
			EventTypes:  []string{store.EventShiftLog, store.EventLeaderReport},
			Eval:        evalIncidentReport,
		},
		Rule{
			Code:        CodeLeaderPressure,
			Description: "weighted operational pressure flags from leader report",
			EventTypes:  []string{store.EventLeaderReport},
			Eval:        evalLeaderPressure,
		},
		Rule{
			Code:        CodeInitiative,
			Description: "recognized initiative from leader report",
			EventTypes:  []string{store.EventLeaderReport},
			Eval:        evalInitiative,
		},
		Rule{
			Code:        CodeAreaCheckFail,
			Description: "failed 5S area check",
			EventTypes:  []string{store.EventSignal5S},
			Eval:        evalAreaCheckFail,
		},
		Rule{
			Code:        CodeTempBreach,
			Description: "temperature reading outside safe range",
			EventTypes:  []string{store.EventFoodSafetyLog},
			Eval:        evalTempBreach,
		},
	)
}

// Register appends a rule. New rules are added as independent functions
// keyed by code; nothing else needs to change.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

func (r *Registry) Rules() []Rule {
	return r.rules
}

// Extract runs every applicable rule against one raw event and returns the
// produced signals. Extraction is fail-open: a rule that errors (malformed
// payload) is logged and skipped so one bad payload never blocks ingestion.
func (r *Registry) Extract(ev *store.RawEvent) []*store.Signal {
	var out []*store.Signal
	for _, rule := range r.rules {
		if !rule.applies(ev.EventType) {
			continue
		}
		signals, err := rule.Eval(ev)
		if err != nil {
			log.Printf("rules: %s on event %d: %v", rule.Code, ev.ID, err)
			continue
		}
		for _, s := range signals {
			s.SourceEventID = ev.ID
			s.IsValid = true
			out = append(out, s)
		}
	}
	return out
}

func (rl Rule) applies(eventType string) bool {
	for _, t := range rl.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}
