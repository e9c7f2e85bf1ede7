package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Staff is the subset of the staff master record this service owns.
// Code is the human-readable identifier ("TM0001"); all foreign keys
// use the surrogate ID, codes are resolved only at the API boundary.
type Staff struct {
	ID               int64      `json:"id"`
	Code             string     `json:"code"`
	Name             string     `json:"name"`
	Role             string     `json:"role"`
	StoreID          *int64     `json:"store_id,omitempty"`
	TrustScore       float64    `json:"trust_score"`
	PerformanceScore float64    `json:"performance_score"`
	LastScoreUpdate  *time.Time `json:"last_score_update,omitempty"`
	Active           bool       `json:"active"`
	CreatedAt        time.Time  `json:"created_at"`
}

type Store struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Region    string    `json:"region"`
	CreatedAt time.Time `json:"created_at"`
}

const staffSelectCols = `id, code, name, role, store_id, trust_score, performance_score, last_score_update, active, created_at`

func scanStaff(row interface{ Scan(...any) error }) (*Staff, error) {
	var s Staff
	var storeID sql.NullInt64
	var lastUpdate, createdAt any
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Role, &storeID, &s.TrustScore, &s.PerformanceScore, &lastUpdate, &s.Active, &createdAt)
	if err != nil {
		return nil, err
	}
	if storeID.Valid {
		s.StoreID = &storeID.Int64
	}
	s.LastScoreUpdate = parseTimePtr(lastUpdate)
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func (db *DB) CreateStaff(s *Staff) error {
	var storeID any
	if s.StoreID != nil {
		storeID = *s.StoreID
	}
	if s.Role == "" {
		s.Role = "crew"
	}
	s.TrustScore = 100
	err := db.QueryRow(db.Q(`INSERT INTO staff (code, name, role, store_id, active) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		s.Code, s.Name, s.Role, storeID, s.Active).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

func (db *DB) GetStaff(id int64) (*Staff, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM staff WHERE id=?`, staffSelectCols)), id)
	return scanStaff(row)
}

func (db *DB) GetStaffByCode(code string) (*Staff, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM staff WHERE code=?`, staffSelectCols)), code)
	return scanStaff(row)
}

func (db *DB) ListStaff() ([]*Staff, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM staff ORDER BY code`, staffSelectCols)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var staff []*Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}

// UpdateStaffScores writes the reconciled cumulative scores back to the profile.
func (db *DB) UpdateStaffScores(id int64, trustScore, performanceScore float64) error {
	_, err := db.Exec(db.Q(`UPDATE staff SET trust_score=?, performance_score=?, last_score_update=datetime('now') WHERE id=?`),
		trustScore, performanceScore, id)
	return err
}

func (db *DB) CreateStore(s *Store) error {
	err := db.QueryRow(db.Q(`INSERT INTO stores (code, name, region) VALUES (?, ?, ?) RETURNING id`),
		s.Code, s.Name, s.Region).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	return nil
}

func (db *DB) GetStore(id int64) (*Store, error) {
	row := db.QueryRow(db.Q(`SELECT id, code, name, region, created_at FROM stores WHERE id=?`), id)
	return scanStore(row)
}

func (db *DB) GetStoreByCode(code string) (*Store, error) {
	row := db.QueryRow(db.Q(`SELECT id, code, name, region, created_at FROM stores WHERE code=?`), code)
	return scanStore(row)
}

func scanStore(row interface{ Scan(...any) error }) (*Store, error) {
	var s Store
	var createdAt any
	if err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Region, &createdAt); err != nil {
		return nil, err
	}
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func (db *DB) ListStores() ([]*Store, error) {
	rows, err := db.Query(db.Q(`SELECT id, code, name, region, created_at FROM stores ORDER BY code`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stores []*Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}
