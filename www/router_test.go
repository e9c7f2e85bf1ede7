package www

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"opscore/batch"
	"opscore/cache"
	"opscore/config"
	"opscore/engine"
	"opscore/store"
)

func testRouter(t *testing.T) (http.Handler, *store.DB) {
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
	handler, stop := NewRouter(eng, batch.New(eng, config.SchedulerConfig{}))
	t.Cleanup(stop)
	return handler, db
}

func postJSON(t *testing.T, handler http.Handler, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// login signs in with the bootstrap admin and returns the session cookie.
func login(t *testing.T, handler http.Handler) *http.Cookie {
	t.Helper()
	w := postJSON(t, handler, "/login", map[string]string{"username": "admin", "password": "admin"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionName {
			return c
		}
	}
	t.Fatal("no session cookie in login response")
	return nil
}

func TestLogEventRejectsUnknownEventType(t *testing.T) {
	handler, db := testRouter(t)
	st := &store.Store{Code: "S01", Name: "Store One"}
	if err := db.CreateStore(st); err != nil {
		t.Fatalf("create store: %v", err)
	}
	staff := &store.Staff{Code: "TM0001", Name: "Worker", Role: "crew", Active: true}
	if err := db.CreateStaff(staff); err != nil {
		t.Fatalf("create staff: %v", err)
	}
	cookie := login(t, handler)

	body := map[string]any{
		"event_type": "shift_report", // not an ingestible type
		"staff_code": "TM0001",
		"store_code": "S01",
		"event_time": "2026-03-10T09:00:00Z",
		"payload":    map[string]any{"late_minutes": 5},
	}
	if w := postJSON(t, handler, "/api/events", body, cookie); w.Code != http.StatusBadRequest {
		t.Errorf("unknown event_type status = %d, want 400", w.Code)
	}

	// A typo must not leave a dead row behind.
	events, err := db.ListRecentEvents(10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %d, want 0", len(events))
	}

	body["event_type"] = store.EventShiftLog
	if w := postJSON(t, handler, "/api/events", body, cookie); w.Code != http.StatusOK {
		t.Errorf("valid event_type status = %d, want 200", w.Code)
	}
}

func TestLogEventRequiresAuth(t *testing.T) {
	handler, _ := testRouter(t)
	body := map[string]any{"event_type": store.EventShiftLog}
	if w := postJSON(t, handler, "/api/events", body, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", w.Code)
	}
}
