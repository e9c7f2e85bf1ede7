package www

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"opscore/store"
)

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, map[string]any{
		"status":    "ok",
		"messaging": h.engine.MsgClient().IsConnected(),
	})
}

func (h *Handlers) apiListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.engine.DB().ListRecentEvents(queryLimit(r, 100))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, events)
}

func (h *Handlers) apiListSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := h.engine.DB().ListRecentSignals(queryLimit(r, 100))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, signals)
}

func (h *Handlers) apiListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.engine.DB().ListStaff()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, staff)
}

func (h *Handlers) apiListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.engine.DB().ListStores()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, stores)
}

func (h *Handlers) apiStaffProfile(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	staff, err := h.engine.DB().GetStaffByCode(code)
	if err != nil {
		h.jsonError(w, "staff not found", http.StatusNotFound)
		return
	}
	profile, err := h.engine.StaffProfile(r.Context(), staff.ID)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, profile)
}

func (h *Handlers) apiStaffRollups(w http.ResponseWriter, r *http.Request) {
	staff, err := h.engine.DB().GetStaffByCode(r.URL.Query().Get("staff"))
	if err != nil {
		h.jsonError(w, "staff not found", http.StatusNotFound)
		return
	}
	from, to := queryDayRange(r)
	rollups, err := h.engine.DB().ListStaffRollups(staff.ID, from, to)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, rollups)
}

func (h *Handlers) apiStoreRollups(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.DB().GetStoreByCode(r.URL.Query().Get("store"))
	if err != nil {
		h.jsonError(w, "store not found", http.StatusNotFound)
		return
	}
	from, to := queryDayRange(r)
	rollups, err := h.engine.StoreRollups(r.Context(), st.ID, from, to)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, rollups)
}

func (h *Handlers) apiMergedActivity(w http.ResponseWriter, r *http.Request) {
	staff, err := h.engine.DB().GetStaffByCode(r.URL.Query().Get("staff"))
	if err != nil {
		h.jsonError(w, "staff not found", http.StatusNotFound)
		return
	}
	from, to := queryDayRange(r)
	records, err := h.engine.MergedActivity(staff.ID, from, to)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, records)
}

// apiAuditLog serves the recent audit feed, or one entity's full history
// when entity+id filters are given.
func (h *Handlers) apiAuditLog(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("entity")
	if idParam := r.URL.Query().Get("id"); entity != "" && idParam != "" {
		id, err := strconv.ParseInt(idParam, 10, 64)
		if err != nil {
			h.jsonError(w, "invalid id", http.StatusBadRequest)
			return
		}
		entries, err := h.engine.DB().ListEntityAudit(entity, id)
		if err != nil {
			h.jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.jsonOK(w, entries)
		return
	}

	entries, err := h.engine.DB().ListAuditLog(queryLimit(r, 100))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}

// apiLogEvent accepts a raw operational event over HTTP. This is the same
// intake path the messaging consumer uses, for deployments without a broker.
func (h *Handlers) apiLogEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventType string          `json:"event_type"`
		StaffCode string          `json:"staff_code"`
		StoreCode string          `json:"store_code"`
		EventTime time.Time       `json:"event_time"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !store.ValidEventType(req.EventType) {
		h.jsonError(w, "unknown event_type", http.StatusBadRequest)
		return
	}

	staff, err := h.engine.DB().GetStaffByCode(req.StaffCode)
	if err != nil {
		h.jsonError(w, "staff not found", http.StatusNotFound)
		return
	}
	st, err := h.engine.DB().GetStoreByCode(req.StoreCode)
	if err != nil {
		h.jsonError(w, "store not found", http.StatusNotFound)
		return
	}

	ev := &store.RawEvent{
		EventType: req.EventType,
		StaffID:   staff.ID,
		StoreID:   st.ID,
		EventTime: req.EventTime,
		Payload:   string(req.Payload),
	}
	logged, signals, err := h.engine.LogRawEvent(ev)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{
		"event":   logged,
		"signals": signals,
	})
}

func (h *Handlers) apiCreateStaff(w http.ResponseWriter, r *http.Request) {
	var s store.Staff
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if s.Code == "" || s.Name == "" {
		h.jsonError(w, "code and name are required", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().CreateStaff(&s); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.engine.DB().AppendAudit(store.AuditEntityStaff, s.ID, store.AuditActionCreate, "", s.Code, h.getUsername(r))
	h.jsonOK(w, s)
}

func (h *Handlers) apiCreateStore(w http.ResponseWriter, r *http.Request) {
	var s store.Store
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if s.Code == "" || s.Name == "" {
		h.jsonError(w, "code and name are required", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().CreateStore(&s); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.engine.DB().AppendAudit(store.AuditEntityStore, s.ID, store.AuditActionCreate, "", s.Code, h.getUsername(r))
	h.jsonOK(w, s)
}
