package scoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"opscore/cache"
	"opscore/store"
)

// Reconciler recomputes a staff member's lifetime trust and performance
// scores as a fold over every daily rollup, never by patching the previous
// value, so logic changes and rounding can't drift the cumulative score.
type Reconciler struct {
	db      *store.DB
	cache   *cache.Cache
	emitter Emitter
}

func NewReconciler(db *store.DB, c *cache.Cache, emitter Emitter) *Reconciler {
	return &Reconciler{db: db, cache: c, emitter: emitter}
}

// Reconcile folds all rollups for staffID into the profile:
//
//	trust_score       = clamp(100 + Σ trust_score_delta, 0, 100)
//	performance_score = mean(ops_contribution_score), 0 with no history
//
// A staff id with no profile row is a skip-with-log condition for callers,
// not a failure of the rollup that triggered it.
func (r *Reconciler) Reconcile(staffID int64) (*store.Staff, error) {
	rollups, err := r.db.ListAllStaffRollups(staffID)
	if err != nil {
		return nil, fmt.Errorf("list rollups for staff %d: %w", staffID, err)
	}

	var deltaSum, opsSum float64
	for _, ru := range rollups {
		deltaSum += ru.TrustScoreDelta
		opsSum += ru.OpsContributionScore
	}

	trust := clamp(100+deltaSum, 0, 100)
	performance := 0.0
	if len(rollups) > 0 {
		performance = opsSum / float64(len(rollups))
	}

	if _, err := r.db.GetStaff(staffID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("staff %d has no profile: %w", staffID, err)
		}
		return nil, fmt.Errorf("get staff %d: %w", staffID, err)
	}
	if err := r.db.UpdateStaffScores(staffID, trust, performance); err != nil {
		return nil, fmt.Errorf("update staff %d scores: %w", staffID, err)
	}

	if err := r.cache.Delete(context.Background(), cache.StaffProfileKey(staffID)); err != nil {
		log.Printf("scoring: invalidate profile cache for staff %d: %v", staffID, err)
	}
	if r.emitter != nil {
		r.emitter.EmitProfileReconciled(staffID, trust, performance)
	}
	return r.db.GetStaff(staffID)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
