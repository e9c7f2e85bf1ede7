package batch

import (
	"path/filepath"
	"testing"
	"time"

	"opscore/cache"
	"opscore/config"
	"opscore/engine"
	"opscore/store"
)

func testEngine(t *testing.T) (*engine.Engine, *store.DB) {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	eng := engine.New(engine.Config{
		AppConfig: config.Defaults(),
		DB:        db,
		Cache:     cache.New(nil, 0),
	})
	return eng, db
}

func seedStaff(t *testing.T, db *store.DB, code string) *store.Staff {
	t.Helper()
	s := &store.Staff{Code: code, Name: "Worker " + code, Role: "crew", Active: true}
	if err := db.CreateStaff(s); err != nil {
		t.Fatalf("create staff: %v", err)
	}
	return s
}

func seedEvent(t *testing.T, db *store.DB, staffID, storeID int64, day string, payload string) {
	t.Helper()
	at, err := time.Parse("2006-01-02", day)
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}
	ev := &store.RawEvent{
		EventType: store.EventShiftLog,
		StaffID:   staffID,
		StoreID:   storeID,
		EventTime: at.Add(9 * time.Hour),
		Payload:   payload,
	}
	if err := db.InsertRawEvent(ev); err != nil {
		t.Fatalf("insert event: %v", err)
	}
}

func TestRunRangeAggregatesAllUnits(t *testing.T) {
	eng, db := testEngine(t)
	st := &store.Store{Code: "S01", Name: "Store One"}
	if err := db.CreateStore(st); err != nil {
		t.Fatalf("create store: %v", err)
	}
	alice := seedStaff(t, db, "TM0001")
	bob := seedStaff(t, db, "TM0002")

	seedEvent(t, db, alice.ID, st.ID, "2026-03-10", `{"late_minutes":0}`)
	seedEvent(t, db, bob.ID, st.ID, "2026-03-11", `{"late_minutes":20}`)

	s := New(eng, config.SchedulerConfig{Enabled: true, RunAt: "00:10", Lookback: 3})
	res, err := s.RunRange("2026-03-10", "2026-03-11")
	if err != nil {
		t.Fatalf("run range: %v", err)
	}
	// Day one: alice + store. Day two: bob + store.
	if res.Units != 4 {
		t.Errorf("Units = %d, want 4", res.Units)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want none", res.Errors)
	}

	if _, err := db.GetStaffRollup(alice.ID, "2026-03-10"); err != nil {
		t.Errorf("alice rollup missing: %v", err)
	}
	if _, err := db.GetStaffRollup(bob.ID, "2026-03-11"); err != nil {
		t.Errorf("bob rollup missing: %v", err)
	}
	storeRollups, err := db.ListStoreRollups(st.ID, "2026-03-10", "2026-03-11")
	if err != nil {
		t.Fatalf("list store rollups: %v", err)
	}
	if len(storeRollups) != 2 {
		t.Errorf("store rollups = %d, want 2", len(storeRollups))
	}
}

func TestRunRangeIdempotent(t *testing.T) {
	eng, db := testEngine(t)
	st := &store.Store{Code: "S01", Name: "Store One"}
	if err := db.CreateStore(st); err != nil {
		t.Fatalf("create store: %v", err)
	}
	staff := seedStaff(t, db, "TM0001")
	seedEvent(t, db, staff.ID, st.ID, "2026-03-10", `{"late_minutes":0}`)

	s := New(eng, config.SchedulerConfig{Enabled: true})
	if _, err := s.RunDay("2026-03-10"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := db.GetStaffRollup(staff.ID, "2026-03-10")
	if err != nil {
		t.Fatalf("get rollup: %v", err)
	}
	if _, err := s.RunDay("2026-03-10"); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, err := db.GetStaffRollup(staff.ID, "2026-03-10")
	if err != nil {
		t.Fatalf("get rollup: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("rerun created a new row: %d vs %d", first.ID, second.ID)
	}
	if first.TrustScoreDelta != second.TrustScoreDelta {
		t.Errorf("rerun changed the delta: %v vs %v", first.TrustScoreDelta, second.TrustScoreDelta)
	}
}

func TestRunRangeRejectsInvertedRange(t *testing.T) {
	eng, _ := testEngine(t)
	s := New(eng, config.SchedulerConfig{})
	if _, err := s.RunRange("2026-03-11", "2026-03-10"); err == nil {
		t.Error("expected error for inverted range")
	}
	if _, err := s.RunRange("not-a-day", "2026-03-10"); err == nil {
		t.Error("expected error for malformed day")
	}
}

func TestRunRangeEmitsBatchEvent(t *testing.T) {
	eng, db := testEngine(t)
	st := &store.Store{Code: "S01", Name: "Store One"}
	if err := db.CreateStore(st); err != nil {
		t.Fatalf("create store: %v", err)
	}

	var got engine.BatchRunFinishedEvent
	fired := false
	eng.Events.SubscribeTypes(func(evt engine.Event) {
		got = evt.Payload.(engine.BatchRunFinishedEvent)
		fired = true
	}, engine.EventBatchRunFinished)

	s := New(eng, config.SchedulerConfig{})
	if _, err := s.RunRange("2026-03-10", "2026-03-10"); err != nil {
		t.Fatalf("run range: %v", err)
	}
	if !fired {
		t.Fatal("batch-finished event not emitted")
	}
	if got.FromDay != "2026-03-10" || got.ToDay != "2026-03-10" {
		t.Errorf("event range = %s..%s", got.FromDay, got.ToDay)
	}
	if got.Units != 1 { // the store, no staff had events
		t.Errorf("Units = %d, want 1", got.Units)
	}
}

func TestTickRunsOncePerDay(t *testing.T) {
	eng, _ := testEngine(t)
	s := New(eng, config.SchedulerConfig{Enabled: true, RunAt: "00:10", Lookback: 1})

	now := time.Date(2026, 3, 12, 0, 5, 0, 0, time.UTC)
	s.tick(now)
	if s.lastRun != "" {
		t.Errorf("ran before due time, lastRun = %q", s.lastRun)
	}

	now = time.Date(2026, 3, 12, 0, 15, 0, 0, time.UTC)
	s.tick(now)
	if s.lastRun != "2026-03-12" {
		t.Errorf("lastRun = %q, want 2026-03-12", s.lastRun)
	}

	// The same day never reruns, even well past the trigger.
	s.lastRun = "2026-03-12"
	s.tick(time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC))
	if s.lastRun != "2026-03-12" {
		t.Errorf("lastRun = %q after no-op tick", s.lastRun)
	}
}

func TestTickBadRunAtIsSafe(t *testing.T) {
	eng, _ := testEngine(t)
	s := New(eng, config.SchedulerConfig{Enabled: true, RunAt: "nope"})
	s.tick(time.Now().UTC())
	if s.lastRun != "" {
		t.Errorf("lastRun = %q, want empty", s.lastRun)
	}
}
