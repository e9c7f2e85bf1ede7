package www

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"opscore/store"
)

func (h *Handlers) apiInvalidateSignal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	sig, err := h.engine.DB().GetSignal(id)
	if err != nil {
		h.jsonError(w, "signal not found", http.StatusNotFound)
		return
	}
	if err := h.engine.DB().InvalidateSignal(id); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.engine.DB().AppendAudit(store.AuditEntitySignal, id, store.AuditActionInvalidate, sig.RuleCode, "", h.getUsername(r))
	h.jsonOK(w, map[string]any{"status": "ok", "id": id})
}

func (h *Handlers) apiRecomputeStaff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StaffCode string `json:"staff_code"`
		Day       string `json:"day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	staff, err := h.engine.DB().GetStaffByCode(req.StaffCode)
	if err != nil {
		h.jsonError(w, "staff not found", http.StatusNotFound)
		return
	}
	rollup, err := h.engine.RunStaffRollup(staff.ID, req.Day)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, rollup)
}

func (h *Handlers) apiRecomputeStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StoreCode string `json:"store_code"`
		Day       string `json:"day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	st, err := h.engine.DB().GetStoreByCode(req.StoreCode)
	if err != nil {
		h.jsonError(w, "store not found", http.StatusNotFound)
		return
	}
	rollup, err := h.engine.RunStoreRollup(st.ID, req.Day)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, rollup)
}

// apiRecomputeRange backfills a day range for all active staff and all
// stores. Per-unit failures come back in the result instead of aborting.
func (h *Handlers) apiRecomputeRange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res, err := h.scheduler.RunRange(req.From, req.To)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.jsonOK(w, res)
}
