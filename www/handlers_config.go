package www

import (
	"encoding/json"
	"log"
	"net/http"

	"opscore/config"
)

func (h *Handlers) apiGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.AppConfig()
	// Never expose credentials over the API.
	h.jsonOK(w, map[string]any{
		"database_driver": cfg.Database.Driver,
		"messaging":       cfg.Messaging,
		"scheduler":       cfg.Scheduler,
		"redis_address":   cfg.Redis.Address,
	})
}

func (h *Handlers) apiSaveMessagingConfig(w http.ResponseWriter, r *http.Request) {
	var req config.MessagingConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Backend != "kafka" && req.Backend != "mqtt" {
		h.jsonError(w, "backend must be kafka or mqtt", http.StatusBadRequest)
		return
	}

	cfg := h.engine.AppConfig()
	cfg.Lock()
	cfg.Messaging = req
	cfg.Unlock()

	if err := cfg.Save(h.engine.ConfigPath()); err != nil {
		log.Printf("config: save error: %v", err)
		h.jsonError(w, "failed to save: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.engine.ReconfigureMessaging()
	log.Printf("config: messaging section saved")
	h.jsonOK(w, map[string]any{"status": "ok"})
}
