package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"opscore/batch"
	"opscore/engine"
)

type Handlers struct {
	engine    *engine.Engine
	scheduler *batch.Scheduler
	sessions  *sessions.CookieStore
	eventHub  *EventHub
}

func NewRouter(eng *engine.Engine, sched *batch.Scheduler) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:    eng,
		scheduler: sched,
		sessions:  newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub:  hub,
	}

	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// SSE
	r.Get("/events", hub.SSEHandler)

	// Auth
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)

	// Read API (no auth required)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.apiHealthCheck)
		r.Get("/events", h.apiListEvents)
		r.Get("/signals", h.apiListSignals)
		r.Get("/staff", h.apiListStaff)
		r.Get("/staff/{code}/profile", h.apiStaffProfile)
		r.Get("/stores", h.apiListStores)
		r.Get("/rollups/staff", h.apiStaffRollups)
		r.Get("/rollups/store", h.apiStoreRollups)
		r.Get("/activity", h.apiMergedActivity)
		r.Get("/audit", h.apiAuditLog)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/api/events", h.apiLogEvent)
		r.Post("/api/staff", h.apiCreateStaff)
		r.Post("/api/stores", h.apiCreateStore)
		r.Post("/api/signals/{id}/invalidate", h.apiInvalidateSignal)
		r.Post("/api/recompute/staff", h.apiRecomputeStaff)
		r.Post("/api/recompute/store", h.apiRecomputeStore)
		r.Post("/api/recompute/range", h.apiRecomputeRange)
		r.Get("/api/config", h.apiGetConfig)
		r.Post("/api/config/messaging", h.apiSaveMessagingConfig)
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}
