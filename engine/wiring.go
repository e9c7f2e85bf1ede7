package engine

import (
	"fmt"

	"opscore/messaging"
	"opscore/store"
)

func (e *Engine) wireEventHandlers() {
	// Every raised signal goes out as a notification through the outbox so
	// downstream consumers (alerting, dashboards) see it even if the broker
	// is down at extraction time.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SignalRaisedEvent)
		e.enqueueSignalNotice(ev)
	}, EventSignalRaised)

	// Rollup recomputes are audited: they overwrite derived rows, and the
	// audit trail is how operators trace which run produced a value.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(StaffRollupComputedEvent)
		e.db.AppendAudit(store.AuditEntityStaffRollup, ev.StaffID, store.AuditActionComputed, "",
			fmt.Sprintf("day=%s trust_delta=%.1f ops=%.1f", ev.Day, ev.TrustScoreDelta, ev.OpsContributionScore), store.AuditActorSystem)
	}, EventStaffRollupComputed)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(StoreRollupComputedEvent)
		e.db.AppendAudit(store.AuditEntityStoreRollup, ev.StoreID, store.AuditActionComputed, "",
			fmt.Sprintf("day=%s overall=%.1f incidents=%d", ev.Day, ev.OverallOpsScore, ev.IncidentCount), store.AuditActorSystem)
	}, EventStoreRollupComputed)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ProfileReconciledEvent)
		e.db.AppendAudit(store.AuditEntityStaff, ev.StaffID, store.AuditActionReconciled, "",
			fmt.Sprintf("trust=%.1f performance=%.1f", ev.TrustScore, ev.PerformanceScore), store.AuditActorSystem)
	}, EventProfileReconciled)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(BatchRunFinishedEvent)
		e.logFn("engine: batch run %s..%s finished: %d units, %d failures", ev.FromDay, ev.ToDay, ev.Units, ev.Failures)
	}, EventBatchRunFinished)
}

func (e *Engine) enqueueSignalNotice(ev SignalRaisedEvent) {
	staffCode, storeCode := "", ""
	if staff, err := e.db.GetStaff(ev.StaffID); err == nil {
		staffCode = staff.Code
	}
	if st, err := e.db.GetStore(ev.StoreID); err == nil {
		storeCode = st.Code
	}

	env := messaging.NewEnvelope(messaging.MsgSignalRaised, staffCode, storeCode, e.cfg.Messaging.RegionID, messaging.SignalNotice{
		SignalID: ev.SignalID,
		EventID:  ev.EventID,
		RuleCode: ev.RuleCode,
		Severity: ev.Severity,
	})
	data, err := env.Encode()
	if err != nil {
		e.logFn("engine: encode signal notice %d: %v", ev.SignalID, err)
		return
	}
	if err := e.db.EnqueueOutbox(e.cfg.Messaging.SignalsTopic, data, messaging.MsgSignalRaised); err != nil {
		e.logFn("engine: enqueue signal notice %d: %v", ev.SignalID, err)
	}
}
