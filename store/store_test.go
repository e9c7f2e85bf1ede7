package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"opscore/config"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db, err := Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: dbPath},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

func seedStaff(t *testing.T, db *DB, code string) *Staff {
	t.Helper()
	s := &Staff{Code: code, Name: "Worker " + code, Role: "crew", Active: true}
	if err := db.CreateStaff(s); err != nil {
		t.Fatalf("create staff %s: %v", code, err)
	}
	return s
}

func seedStore(t *testing.T, db *DB, code string) *Store {
	t.Helper()
	s := &Store{Code: code, Name: "Store " + code, Region: "north"}
	if err := db.CreateStore(s); err != nil {
		t.Fatalf("create store %s: %v", code, err)
	}
	return s
}

// --- Staff / store tests ---

func TestStaffCRUD(t *testing.T) {
	db := testDB(t)

	s := &Staff{Code: "TM0001", Name: "Aki Tanaka", Role: "crew", Active: true}
	if err := db.CreateStaff(s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.ID == 0 {
		t.Fatal("ID should be assigned")
	}

	got, err := db.GetStaff(s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != "TM0001" {
		t.Errorf("Code = %q, want %q", got.Code, "TM0001")
	}
	if got.TrustScore != 100 {
		t.Errorf("TrustScore = %v, want 100", got.TrustScore)
	}
	if got.PerformanceScore != 0 {
		t.Errorf("PerformanceScore = %v, want 0", got.PerformanceScore)
	}
	if got.LastScoreUpdate != nil {
		t.Error("LastScoreUpdate should be nil before first reconciliation")
	}

	got2, err := db.GetStaffByCode("TM0001")
	if err != nil {
		t.Fatalf("getByCode: %v", err)
	}
	if got2.ID != s.ID {
		t.Errorf("getByCode ID = %d, want %d", got2.ID, s.ID)
	}

	seedStaff(t, db, "TM0002")
	staff, err := db.ListStaff()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(staff) != 2 {
		t.Errorf("len = %d, want 2", len(staff))
	}
}

func TestStaffBaselineScoreForced(t *testing.T) {
	db := testDB(t)

	// Whatever the caller sets, a new profile starts from the baseline.
	s := &Staff{Code: "TM0003", Name: "X", Role: "crew", TrustScore: 12, Active: true}
	if err := db.CreateStaff(s); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := db.GetStaff(s.ID)
	if got.TrustScore != 100 {
		t.Errorf("TrustScore = %v, want 100", got.TrustScore)
	}
}

func TestUpdateStaffScores(t *testing.T) {
	db := testDB(t)
	s := seedStaff(t, db, "TM0001")

	if err := db.UpdateStaffScores(s.ID, 87.5, 42.25); err != nil {
		t.Fatalf("update scores: %v", err)
	}
	got, _ := db.GetStaff(s.ID)
	if got.TrustScore != 87.5 {
		t.Errorf("TrustScore = %v, want 87.5", got.TrustScore)
	}
	if got.PerformanceScore != 42.25 {
		t.Errorf("PerformanceScore = %v, want 42.25", got.PerformanceScore)
	}
	if got.LastScoreUpdate == nil {
		t.Error("LastScoreUpdate should be set after score write")
	}
}

func TestStoreCRUD(t *testing.T) {
	db := testDB(t)

	s := &Store{Code: "S-OSAKA-01", Name: "Osaka Ekimae", Region: "kansai"}
	if err := db.CreateStore(s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.ID == 0 {
		t.Fatal("ID should be assigned")
	}

	got, err := db.GetStoreByCode("S-OSAKA-01")
	if err != nil {
		t.Fatalf("getByCode: %v", err)
	}
	if got.Region != "kansai" {
		t.Errorf("Region = %q, want %q", got.Region, "kansai")
	}

	seedStore(t, db, "S-OSAKA-02")
	stores, err := db.ListStores()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stores) != 2 {
		t.Errorf("len = %d, want 2", len(stores))
	}
}

// --- Raw event tests ---

func TestRawEventInsertAndDayWindow(t *testing.T) {
	db := testDB(t)
	staff := seedStaff(t, db, "TM0001")
	st := seedStore(t, db, "S01")

	day := "2026-03-10"
	inWindow := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	atEnd := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	ev1 := &RawEvent{EventType: EventShiftLog, StaffID: staff.ID, StoreID: st.ID, EventTime: inWindow, Payload: `{"mood":"OK"}`}
	if err := db.InsertRawEvent(ev1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ev1.ID == 0 {
		t.Fatal("ID should be assigned")
	}

	// Midnight of the next day is outside the half-open window.
	ev2 := &RawEvent{EventType: EventShiftLog, StaffID: staff.ID, StoreID: st.ID, EventTime: atEnd}
	if err := db.InsertRawEvent(ev2); err != nil {
		t.Fatalf("insert: %v", err)
	}

	events, err := db.ListStaffEvents(staff.ID, day)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len = %d, want 1", len(events))
	}
	if events[0].ID != ev1.ID {
		t.Errorf("ID = %d, want %d", events[0].ID, ev1.ID)
	}
	if !events[0].EventTime.Equal(inWindow) {
		t.Errorf("EventTime = %v, want %v", events[0].EventTime, inWindow)
	}

	nextDay, err := db.ListStaffEvents(staff.ID, "2026-03-11")
	if err != nil {
		t.Fatalf("list next day: %v", err)
	}
	if len(nextDay) != 1 {
		t.Errorf("next day len = %d, want 1", len(nextDay))
	}
}

func TestRawEventEmptyPayloadDefaults(t *testing.T) {
	db := testDB(t)
	staff := seedStaff(t, db, "TM0001")
	st := seedStore(t, db, "S01")

	ev := &RawEvent{EventType: EventSignal5S, StaffID: staff.ID, StoreID: st.ID, EventTime: time.Now()}
	if err := db.InsertRawEvent(ev); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := db.GetRawEvent(ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Payload != "{}" {
		t.Errorf("Payload = %q, want %q", got.Payload, "{}")
	}
}

func TestListStaffEventsRangeTypeFilter(t *testing.T) {
	db := testDB(t)
	staff := seedStaff(t, db, "TM0001")
	st := seedStore(t, db, "S01")

	mk := func(eventType string, day int) {
		ev := &RawEvent{EventType: eventType, StaffID: staff.ID, StoreID: st.ID,
			EventTime: time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC)}
		if err := db.InsertRawEvent(ev); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	mk(EventShiftLog, 10)
	mk(EventLeaderReport, 10)
	mk(EventShiftLog, 11)
	mk(EventShiftLog, 15) // outside range

	events, err := db.ListStaffEventsRange(staff.ID, "2026-03-10", "2026-03-12", EventShiftLog)
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len = %d, want 2", len(events))
	}

	all, err := db.ListStaffEventsRange(staff.ID, "2026-03-10", "2026-03-12", "")
	if err != nil {
		t.Fatalf("list range all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all len = %d, want 3", len(all))
	}
}

func TestListActiveStaffIDs(t *testing.T) {
	db := testDB(t)
	a := seedStaff(t, db, "TM0001")
	b := seedStaff(t, db, "TM0002")
	seedStaff(t, db, "TM0003") // no activity
	st := seedStore(t, db, "S01")

	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	for _, id := range []int64{a.ID, a.ID, b.ID} {
		ev := &RawEvent{EventType: EventShiftLog, StaffID: id, StoreID: st.ID, EventTime: at}
		if err := db.InsertRawEvent(ev); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	ids, err := db.ListActiveStaffIDs("2026-03-10")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("len = %d, want 2", len(ids))
	}
}

// --- Signal tests ---

func TestSignalInsertAndInvalidate(t *testing.T) {
	db := testDB(t)
	staff := seedStaff(t, db, "TM0001")
	st := seedStore(t, db, "S01")

	ev := &RawEvent{EventType: EventShiftLog, StaffID: staff.ID, StoreID: st.ID,
		EventTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	if err := db.InsertRawEvent(ev); err != nil {
		t.Fatalf("insert event: %v", err)
	}

	sig := &Signal{SourceEventID: ev.ID, RuleCode: "R01", Severity: SeverityMedium,
		Metadata: `{"late_minutes":15}`, IsValid: true}
	if err := db.InsertSignal(sig); err != nil {
		t.Fatalf("insert signal: %v", err)
	}
	if sig.ID == 0 {
		t.Fatal("ID should be assigned")
	}

	valid, err := db.ListStaffSignals(staff.ID, "2026-03-10")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(valid) != 1 {
		t.Fatalf("len = %d, want 1", len(valid))
	}
	if valid[0].StaffID != staff.ID || valid[0].StoreID != st.ID {
		t.Errorf("join fields staff=%d store=%d, want %d/%d", valid[0].StaffID, valid[0].StoreID, staff.ID, st.ID)
	}

	if err := db.InvalidateSignal(sig.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	after, _ := db.ListStaffSignals(staff.ID, "2026-03-10")
	if len(after) != 0 {
		t.Errorf("len after invalidate = %d, want 0", len(after))
	}

	// The row itself survives, only the flag flips.
	got, err := db.GetSignal(sig.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsValid {
		t.Error("IsValid should be false")
	}
}

// --- Rollup tests ---

func TestStaffRollupUpsertReplaces(t *testing.T) {
	db := testDB(t)
	staff := seedStaff(t, db, "TM0001")

	r := &StaffRollup{StaffID: staff.ID, Day: "2026-03-10", TrustScoreDelta: -5,
		OpsContributionScore: 10, TasksAssigned: 8, TasksCompleted: 7, TasksFailed: 1}
	if err := db.UpsertStaffRollup(r); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	firstID := r.ID

	// Recompute with different numbers replaces the same row.
	r2 := &StaffRollup{StaffID: staff.ID, Day: "2026-03-10", TrustScoreDelta: -2,
		OpsContributionScore: 15, TasksAssigned: 8, TasksCompleted: 8}
	if err := db.UpsertStaffRollup(r2); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if r2.ID != firstID {
		t.Errorf("second upsert ID = %d, want %d", r2.ID, firstID)
	}

	got, err := db.GetStaffRollup(staff.ID, "2026-03-10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TrustScoreDelta != -2 {
		t.Errorf("TrustScoreDelta = %v, want -2", got.TrustScoreDelta)
	}
	if got.OpsContributionScore != 15 {
		t.Errorf("OpsContributionScore = %v, want 15", got.OpsContributionScore)
	}
	if got.TasksFailed != 0 {
		t.Errorf("TasksFailed = %d, want 0 (full replace)", got.TasksFailed)
	}

	all, _ := db.ListAllStaffRollups(staff.ID)
	if len(all) != 1 {
		t.Errorf("rollup rows = %d, want 1", len(all))
	}
}

func TestStoreRollupUpsertAndRange(t *testing.T) {
	db := testDB(t)
	st := seedStore(t, db, "S01")

	for _, day := range []string{"2026-03-10", "2026-03-11", "2026-03-12"} {
		r := &StoreRollup{StoreID: st.ID, Day: day, AttendanceScore: 100, ExecutionScore: 90,
			ComplianceScore: 100, IncidentScore: 80, OverallOpsScore: 92.5,
			SignalSummary: `{"R12":1}`}
		if err := db.UpsertStoreRollup(r); err != nil {
			t.Fatalf("upsert %s: %v", day, err)
		}
	}

	rollups, err := db.ListStoreRollups(st.ID, "2026-03-10", "2026-03-11")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rollups) != 2 {
		t.Errorf("len = %d, want 2", len(rollups))
	}

	got, err := db.GetStoreRollup(st.ID, "2026-03-12")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SignalSummary != `{"R12":1}` {
		t.Errorf("SignalSummary = %q", got.SignalSummary)
	}
}

// --- Outbox tests ---

func TestOutboxLifecycle(t *testing.T) {
	db := testDB(t)

	if err := db.EnqueueOutbox("ops.signals", []byte(`{"rule":"R01"}`), "signal.raised"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := db.EnqueueOutbox("ops.signals", []byte(`{"rule":"R12"}`), "signal.raised"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	pending, err := db.ListPendingOutbox(10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].Topic != "ops.signals" {
		t.Errorf("Topic = %q", pending[0].Topic)
	}

	if err := db.AckOutbox(pending[0].ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if err := db.IncrementOutboxRetries(pending[1].ID); err != nil {
		t.Fatalf("retries: %v", err)
	}

	after, _ := db.ListPendingOutbox(10)
	if len(after) != 1 {
		t.Fatalf("pending after ack = %d, want 1", len(after))
	}
	if after[0].Retries != 1 {
		t.Errorf("Retries = %d, want 1", after[0].Retries)
	}
}

// --- Admin user / audit tests ---

func TestAdminUsers(t *testing.T) {
	db := testDB(t)

	exists, err := db.AdminUserExists()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("no admin should exist yet")
	}

	if err := db.CreateAdminUser("admin", "hash123"); err != nil {
		t.Fatalf("create: %v", err)
	}
	exists, _ = db.AdminUserExists()
	if !exists {
		t.Error("admin should exist")
	}

	u, err := db.GetAdminUser("admin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.PasswordHash != "hash123" {
		t.Errorf("PasswordHash = %q", u.PasswordHash)
	}
}

func TestAuditLog(t *testing.T) {
	db := testDB(t)

	if err := db.AppendAudit(AuditEntityStaff, 7, AuditActionReconciled, "90", "85", AuditActorSystem); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.AppendAudit(AuditEntitySignal, 3, AuditActionInvalidate, "R12", "", "admin"); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := db.ListAuditLog(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}

	staffEntries, err := db.ListEntityAudit(AuditEntityStaff, 7)
	if err != nil {
		t.Fatalf("entity audit: %v", err)
	}
	if len(staffEntries) != 1 {
		t.Errorf("staff entries = %d, want 1", len(staffEntries))
	}
	if staffEntries[0].Action != AuditActionReconciled {
		t.Errorf("Action = %q", staffEntries[0].Action)
	}
}
