package scoring

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"opscore/rules"
	"opscore/store"
)

// Emitter receives scoring lifecycle events. Implemented by the engine's
// event bus bridge; nil disables emission.
type Emitter interface {
	EmitStaffRollupComputed(rollup *store.StaffRollup)
	EmitStoreRollupComputed(rollup *store.StoreRollup)
	EmitProfileReconciled(staffID int64, trustScore, performanceScore float64)
}

// StaffAggregator computes one staff member's daily rollup from the
// signals and raw events in that day's UTC window.
type StaffAggregator struct {
	db         *store.DB
	reconciler *Reconciler
	emitter    Emitter
}

func NewStaffAggregator(db *store.DB, reconciler *Reconciler, emitter Emitter) *StaffAggregator {
	return &StaffAggregator{db: db, reconciler: reconciler, emitter: emitter}
}

// Run recomputes and upserts the rollup for (staffID, day), then triggers
// profile reconciliation. Recomputing is a full replace: running twice with
// no new events yields an identical row. A day with no activity still
// writes an all-zero row so historical absence stays queryable.
func (a *StaffAggregator) Run(staffID int64, day string) (*store.StaffRollup, error) {
	signals, err := a.db.ListStaffSignals(staffID, day)
	if err != nil {
		return nil, fmt.Errorf("list staff signals: %w", err)
	}

	rollup := &store.StaffRollup{StaffID: staffID, Day: day}
	for _, s := range signals {
		applySignal(rollup, s)
	}

	events, err := a.db.ListStaffEvents(staffID, day)
	if err != nil {
		return nil, fmt.Errorf("list staff events: %w", err)
	}
	for _, ev := range events {
		if ev.EventType != store.EventShiftLog {
			continue
		}
		applyShiftLog(rollup, ev)
	}

	// Floor only. The store and cumulative stages do their own clamping.
	if rollup.OpsContributionScore < 0 {
		rollup.OpsContributionScore = 0
	}

	if err := a.db.UpsertStaffRollup(rollup); err != nil {
		return nil, err
	}
	if a.emitter != nil {
		a.emitter.EmitStaffRollupComputed(rollup)
	}

	// Reconciliation failure (e.g. missing profile) does not invalidate the
	// rollup that was just written.
	if _, err := a.reconciler.Reconcile(staffID); err != nil {
		log.Printf("scoring: reconcile staff %d after rollup: %v", staffID, err)
	}
	return rollup, nil
}

// applySignal routes one signal into the rollup fold. The fold is
// commutative: processing order never changes the result.
func applySignal(r *store.StaffRollup, s *store.SignalWithEvent) {
	code := s.RuleCode
	switch {
	case code == rules.CodeInitiative:
		// Recognized-good-behavior override: always positive.
		r.OpsContributionScore += 10
		r.TrustScoreDelta += 2

	case code == rules.CodeIncidentReport:
		r.IncidentsLogged++
		r.TrustScoreDelta -= trustPenalty(s.Severity)

	// R09 is an execution rule despite its attendance-group prefix, so it
	// must be claimed before the R0 branch can swallow it.
	case code == "R09" || strings.HasPrefix(code, "R1"):
		if s.Severity == store.SeverityInfo || s.Severity == store.SeverityLow {
			// Proactive credit.
			r.OpsContributionScore += 5
		} else {
			r.OpsContributionScore += executionPenalty(s.Severity)
			r.TasksFailed++
		}

	case strings.HasPrefix(code, "R0") || strings.HasPrefix(code, "R2"):
		r.TrustScoreDelta -= trustPenalty(s.Severity)
		if code == rules.CodeLateArrival {
			r.LateMinutes += metadataInt(s.Metadata, "late_minutes")
		}
	}
}

// applyShiftLog grants the baseline credit for a completed shift and folds
// the checklist into task counts. A malformed checklist payload skips the
// counts entirely so a bad payload never penalizes the staff member.
// Completed counts only affirmative marks: an unrecognized value is assigned
// but neither completed nor failed.
func applyShiftLog(r *store.StaffRollup, ev *store.RawEvent) {
	var p rules.ShiftLogPayload
	if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
		log.Printf("scoring: shift log payload on event %d: %v", ev.ID, err)
	} else {
		for _, v := range p.Checklist {
			r.TasksAssigned++
			if checklistDone(v) {
				r.TasksCompleted++
			}
		}
	}
	r.OpsContributionScore += 10
	r.TrustScoreDelta += 1
}

func trustPenalty(severity string) float64 {
	switch severity {
	case store.SeverityCritical:
		return 10
	case store.SeverityHigh:
		return 5
	default:
		return 2
	}
}

func executionPenalty(severity string) float64 {
	if severity == store.SeverityHigh {
		return -10
	}
	return -5
}

func checklistDone(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "ok", "done", "pass", "true":
			return true
		}
	}
	return false
}

// metadataInt pulls an integer field out of signal metadata JSON.
func metadataInt(metadata, key string) int {
	var m map[string]any
	if err := json.Unmarshal([]byte(metadata), &m); err != nil {
		return 0
	}
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return 0
}
