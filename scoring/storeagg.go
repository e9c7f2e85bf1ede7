package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"opscore/cache"
	"opscore/rules"
	"opscore/store"
)

// StoreAggregator computes one store's daily rollup: four sub-scores
// starting at 100 and decremented by severity-weighted signal penalties.
type StoreAggregator struct {
	db      *store.DB
	cache   *cache.Cache
	emitter Emitter
}

func NewStoreAggregator(db *store.DB, c *cache.Cache, emitter Emitter) *StoreAggregator {
	return &StoreAggregator{db: db, cache: c, emitter: emitter}
}

// Run recomputes and upserts the rollup for (storeID, day). Full-replace
// semantics, same as the staff aggregator.
func (a *StoreAggregator) Run(storeID int64, day string) (*store.StoreRollup, error) {
	signals, err := a.db.ListStoreSignals(storeID, day)
	if err != nil {
		return nil, fmt.Errorf("list store signals: %w", err)
	}

	rollup := &store.StoreRollup{
		StoreID:         storeID,
		Day:             day,
		AttendanceScore: 100,
		ExecutionScore:  100,
		ComplianceScore: 100,
		IncidentScore:   100,
	}

	summary := make(map[string]int)
	for _, s := range signals {
		summary[s.RuleCode]++
		if s.RuleCode == rules.CodeIncidentReport {
			rollup.IncidentCount++
		}
		penalty := storePenalty(s.Severity)
		switch RouteBucket(s.RuleCode) {
		case BucketAttendance:
			rollup.AttendanceScore -= penalty
		case BucketExecution:
			rollup.ExecutionScore -= penalty
		case BucketIncident:
			rollup.IncidentScore -= penalty
		case BucketCompliance:
			rollup.ComplianceScore -= penalty
		}
	}

	rollup.AttendanceScore = floorZero(rollup.AttendanceScore)
	rollup.ExecutionScore = floorZero(rollup.ExecutionScore)
	rollup.ComplianceScore = floorZero(rollup.ComplianceScore)
	rollup.IncidentScore = floorZero(rollup.IncidentScore)
	rollup.OverallOpsScore = (rollup.AttendanceScore + rollup.ExecutionScore +
		rollup.ComplianceScore + rollup.IncidentScore) / 4

	data, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encode signal summary: %w", err)
	}
	rollup.SignalSummary = string(data)

	if err := a.db.UpsertStoreRollup(rollup); err != nil {
		return nil, err
	}
	if err := a.cache.Delete(context.Background(), cache.StoreRollupKey(storeID, day)); err != nil {
		log.Printf("scoring: invalidate rollup cache for store %d %s: %v", storeID, day, err)
	}
	if a.emitter != nil {
		a.emitter.EmitStoreRollupComputed(rollup)
	}
	return rollup, nil
}

func storePenalty(severity string) float64 {
	switch severity {
	case store.SeverityCritical:
		return 20
	case store.SeverityHigh:
		return 10
	default:
		return 5
	}
}

func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
