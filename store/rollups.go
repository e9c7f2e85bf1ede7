package store

import (
	"database/sql"
	"fmt"
	"time"
)

// StaffRollup is one staff member's derived daily summary. Unique on
// (staff_id, day); recomputation replaces the row in full.
type StaffRollup struct {
	ID                   int64     `json:"id"`
	StaffID              int64     `json:"staff_id"`
	Day                  string    `json:"day"`
	TrustScoreDelta      float64   `json:"trust_score_delta"`
	OpsContributionScore float64   `json:"ops_contribution_score"`
	LateMinutes          int       `json:"late_minutes"`
	TasksAssigned        int       `json:"tasks_assigned"`
	TasksCompleted       int       `json:"tasks_completed"`
	TasksFailed          int       `json:"tasks_failed"`
	IncidentsLogged      int       `json:"incidents_logged"`
	ComputedAt           time.Time `json:"computed_at"`
}

// StoreRollup is one store's derived daily summary. Unique on (store_id, day).
type StoreRollup struct {
	ID              int64     `json:"id"`
	StoreID         int64     `json:"store_id"`
	Day             string    `json:"day"`
	AttendanceScore float64   `json:"attendance_score"`
	ExecutionScore  float64   `json:"execution_score"`
	ComplianceScore float64   `json:"compliance_score"`
	IncidentScore   float64   `json:"incident_score"`
	OverallOpsScore float64   `json:"overall_ops_score"`
	IncidentCount   int       `json:"incident_count"`
	SignalSummary   string    `json:"signal_summary"`
	ComputedAt      time.Time `json:"computed_at"`
}

// UpsertStaffRollup replaces the rollup row for (staff_id, day).
func (db *DB) UpsertStaffRollup(r *StaffRollup) error {
	err := db.QueryRow(db.Q(`INSERT INTO staff_rollups
		(staff_id, day, trust_score_delta, ops_contribution_score, late_minutes, tasks_assigned, tasks_completed, tasks_failed, incidents_logged, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (staff_id, day) DO UPDATE SET
			trust_score_delta=excluded.trust_score_delta,
			ops_contribution_score=excluded.ops_contribution_score,
			late_minutes=excluded.late_minutes,
			tasks_assigned=excluded.tasks_assigned,
			tasks_completed=excluded.tasks_completed,
			tasks_failed=excluded.tasks_failed,
			incidents_logged=excluded.incidents_logged,
			computed_at=excluded.computed_at
		RETURNING id`),
		r.StaffID, r.Day, r.TrustScoreDelta, r.OpsContributionScore, r.LateMinutes,
		r.TasksAssigned, r.TasksCompleted, r.TasksFailed, r.IncidentsLogged).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("upsert staff rollup: %w", err)
	}
	return nil
}

const staffRollupCols = `id, staff_id, day, trust_score_delta, ops_contribution_score, late_minutes, tasks_assigned, tasks_completed, tasks_failed, incidents_logged, computed_at`

func scanStaffRollup(row interface{ Scan(...any) error }) (*StaffRollup, error) {
	var r StaffRollup
	var computedAt any
	err := row.Scan(&r.ID, &r.StaffID, &r.Day, &r.TrustScoreDelta, &r.OpsContributionScore,
		&r.LateMinutes, &r.TasksAssigned, &r.TasksCompleted, &r.TasksFailed, &r.IncidentsLogged, &computedAt)
	if err != nil {
		return nil, err
	}
	r.ComputedAt = parseTime(computedAt)
	return &r, nil
}

func scanStaffRollups(rows *sql.Rows) ([]*StaffRollup, error) {
	var rollups []*StaffRollup
	for rows.Next() {
		r, err := scanStaffRollup(rows)
		if err != nil {
			return nil, err
		}
		rollups = append(rollups, r)
	}
	return rollups, rows.Err()
}

func (db *DB) GetStaffRollup(staffID int64, day string) (*StaffRollup, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM staff_rollups WHERE staff_id=? AND day=?`, staffRollupCols)), staffID, day)
	return scanStaffRollup(row)
}

func (db *DB) ListStaffRollups(staffID int64, fromDay, toDay string) ([]*StaffRollup, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM staff_rollups WHERE staff_id=? AND day>=? AND day<=? ORDER BY day`, staffRollupCols)),
		staffID, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStaffRollups(rows)
}

// ListAllStaffRollups returns every rollup row for a staff member, oldest first.
// The reconciler folds over the full history.
func (db *DB) ListAllStaffRollups(staffID int64) ([]*StaffRollup, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM staff_rollups WHERE staff_id=? ORDER BY day`, staffRollupCols)), staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStaffRollups(rows)
}

// UpsertStoreRollup replaces the rollup row for (store_id, day).
func (db *DB) UpsertStoreRollup(r *StoreRollup) error {
	if r.SignalSummary == "" {
		r.SignalSummary = "{}"
	}
	err := db.QueryRow(db.Q(`INSERT INTO store_rollups
		(store_id, day, attendance_score, execution_score, compliance_score, incident_score, overall_ops_score, incident_count, signal_summary, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (store_id, day) DO UPDATE SET
			attendance_score=excluded.attendance_score,
			execution_score=excluded.execution_score,
			compliance_score=excluded.compliance_score,
			incident_score=excluded.incident_score,
			overall_ops_score=excluded.overall_ops_score,
			incident_count=excluded.incident_count,
			signal_summary=excluded.signal_summary,
			computed_at=excluded.computed_at
		RETURNING id`),
		r.StoreID, r.Day, r.AttendanceScore, r.ExecutionScore, r.ComplianceScore,
		r.IncidentScore, r.OverallOpsScore, r.IncidentCount, r.SignalSummary).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("upsert store rollup: %w", err)
	}
	return nil
}

const storeRollupCols = `id, store_id, day, attendance_score, execution_score, compliance_score, incident_score, overall_ops_score, incident_count, signal_summary, computed_at`

func scanStoreRollup(row interface{ Scan(...any) error }) (*StoreRollup, error) {
	var r StoreRollup
	var computedAt any
	err := row.Scan(&r.ID, &r.StoreID, &r.Day, &r.AttendanceScore, &r.ExecutionScore,
		&r.ComplianceScore, &r.IncidentScore, &r.OverallOpsScore, &r.IncidentCount, &r.SignalSummary, &computedAt)
	if err != nil {
		return nil, err
	}
	r.ComputedAt = parseTime(computedAt)
	return &r, nil
}

func (db *DB) GetStoreRollup(storeID int64, day string) (*StoreRollup, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM store_rollups WHERE store_id=? AND day=?`, storeRollupCols)), storeID, day)
	return scanStoreRollup(row)
}

func (db *DB) ListStoreRollups(storeID int64, fromDay, toDay string) ([]*StoreRollup, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM store_rollups WHERE store_id=? AND day>=? AND day<=? ORDER BY day`, storeRollupCols)),
		storeID, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rollups []*StoreRollup
	for rows.Next() {
		r, err := scanStoreRollup(rows)
		if err != nil {
			return nil, err
		}
		rollups = append(rollups, r)
	}
	return rollups, rows.Err()
}
