package engine

import (
	"opscore/store"
)

// scoringEmitter bridges the scoring package's emitter interface to the EventBus.
type scoringEmitter struct {
	bus *EventBus
}

func (e *scoringEmitter) EmitStaffRollupComputed(rollup *store.StaffRollup) {
	e.bus.Emit(Event{Type: EventStaffRollupComputed, Payload: StaffRollupComputedEvent{
		StaffID:              rollup.StaffID,
		Day:                  rollup.Day,
		TrustScoreDelta:      rollup.TrustScoreDelta,
		OpsContributionScore: rollup.OpsContributionScore,
	}})
}

func (e *scoringEmitter) EmitStoreRollupComputed(rollup *store.StoreRollup) {
	e.bus.Emit(Event{Type: EventStoreRollupComputed, Payload: StoreRollupComputedEvent{
		StoreID:         rollup.StoreID,
		Day:             rollup.Day,
		OverallOpsScore: rollup.OverallOpsScore,
		IncidentCount:   rollup.IncidentCount,
	}})
}

func (e *scoringEmitter) EmitProfileReconciled(staffID int64, trustScore, performanceScore float64) {
	e.bus.Emit(Event{Type: EventProfileReconciled, Payload: ProfileReconciledEvent{
		StaffID:          staffID,
		TrustScore:       trustScore,
		PerformanceScore: performanceScore,
	}})
}
