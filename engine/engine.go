package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"opscore/cache"
	"opscore/config"
	"opscore/messaging"
	"opscore/rules"
	"opscore/scoring"
	"opscore/store"
	"opscore/timeline"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Cache      *cache.Cache
	MsgClient  *messaging.Client
	Registry   *rules.Registry
	LogFunc    LogFunc
}

// Engine owns the decision pipeline: synchronous signal extraction on every
// raw event write, and the aggregators the scheduler and admin triggers run.
type Engine struct {
	cfg          *config.Config
	configPath   string
	db           *store.DB
	cache        *cache.Cache
	msgClient    *messaging.Client
	registry     *rules.Registry
	staffAgg     *scoring.StaffAggregator
	storeAgg     *scoring.StoreAggregator
	reconciler   *scoring.Reconciler
	merger       *timeline.Merger
	Events       *EventBus
	logFn        LogFunc
	stopChan     chan struct{}
	msgConnected bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	registry := c.Registry
	if registry == nil {
		registry = rules.DefaultRegistry()
	}
	e := &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		cache:      c.Cache,
		msgClient:  c.MsgClient,
		registry:   registry,
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
	emitter := &scoringEmitter{bus: e.Events}
	e.reconciler = scoring.NewReconciler(c.DB, c.Cache, emitter)
	e.staffAgg = scoring.NewStaffAggregator(c.DB, e.reconciler, emitter)
	e.storeAgg = scoring.NewStoreAggregator(c.DB, c.Cache, emitter)
	e.merger = timeline.NewMerger(c.DB)
	return e
}

func (e *Engine) Start() {
	e.wireEventHandlers()
	e.checkConnectionStatus()
	go e.connectionHealthLoop()
	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                { return e.db }
func (e *Engine) AppConfig() *config.Config    { return e.cfg }
func (e *Engine) ConfigPath() string           { return e.configPath }
func (e *Engine) Cache() *cache.Cache          { return e.cache }
func (e *Engine) MsgClient() *messaging.Client { return e.msgClient }
func (e *Engine) Registry() *rules.Registry    { return e.registry }
func (e *Engine) Merger() *timeline.Merger     { return e.merger }

// LogRawEvent appends one raw fact, runs signal extraction inline, persists
// the produced signals, and queues outbound notifications. Extraction is
// fail-open: signal persistence problems are logged, never returned, so a
// rule hiccup cannot block the write itself.
func (e *Engine) LogRawEvent(ev *store.RawEvent) (*store.RawEvent, []*store.Signal, error) {
	if err := e.db.InsertRawEvent(ev); err != nil {
		return nil, nil, err
	}

	signals := e.registry.Extract(ev)
	for _, s := range signals {
		if err := e.db.InsertSignal(s); err != nil {
			e.logFn("engine: persist signal %s for event %d: %v", s.RuleCode, ev.ID, err)
			continue
		}
		e.Events.Emit(Event{Type: EventSignalRaised, Payload: SignalRaisedEvent{
			SignalID: s.ID,
			EventID:  ev.ID,
			StaffID:  ev.StaffID,
			StoreID:  ev.StoreID,
			RuleCode: s.RuleCode,
			Severity: s.Severity,
		}})
	}

	e.Events.Emit(Event{Type: EventRawEventLogged, Payload: RawEventLoggedEvent{
		EventID:     ev.ID,
		EventType:   ev.EventType,
		StaffID:     ev.StaffID,
		StoreID:     ev.StoreID,
		SignalCount: len(signals),
	}})
	return ev, signals, nil
}

// RunStaffRollup recomputes one staff-day and reconciles the profile.
func (e *Engine) RunStaffRollup(staffID int64, day string) (*store.StaffRollup, error) {
	return e.staffAgg.Run(staffID, day)
}

// RunStoreRollup recomputes one store-day.
func (e *Engine) RunStoreRollup(storeID int64, day string) (*store.StoreRollup, error) {
	return e.storeAgg.Run(storeID, day)
}

// ReconcileStaffProfile refolds the full rollup history into the profile.
func (e *Engine) ReconcileStaffProfile(staffID int64) (*store.Staff, error) {
	return e.reconciler.Reconcile(staffID)
}

// StaffProfile is the cached profile read path.
func (e *Engine) StaffProfile(ctx context.Context, staffID int64) (*store.Staff, error) {
	key := cache.StaffProfileKey(staffID)
	var cached store.Staff
	if e.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}
	staff, err := e.db.GetStaff(staffID)
	if err != nil {
		return nil, err
	}
	if err := e.cache.SetJSON(ctx, key, staff); err != nil {
		e.logFn("engine: cache staff %d profile: %v", staffID, err)
	}
	return staff, nil
}

// StoreRollups is the cached rollup read path: each day in [fromDay, toDay]
// is looked up in the cache first, falling through to SQL on miss. Days with
// no rollup row are skipped. The aggregator invalidates a day's key when it
// recomputes, so stale reads last at most one recompute.
func (e *Engine) StoreRollups(ctx context.Context, storeID int64, fromDay, toDay string) ([]*store.StoreRollup, error) {
	from, err := time.Parse("2006-01-02", fromDay)
	if err != nil {
		return nil, fmt.Errorf("parse from day %q: %w", fromDay, err)
	}
	to, err := time.Parse("2006-01-02", toDay)
	if err != nil {
		return nil, fmt.Errorf("parse to day %q: %w", toDay, err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("day range %s..%s is inverted", fromDay, toDay)
	}

	var out []*store.StoreRollup
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := d.Format("2006-01-02")
		key := cache.StoreRollupKey(storeID, day)
		var cached store.StoreRollup
		if e.cache.GetJSON(ctx, key, &cached) {
			out = append(out, &cached)
			continue
		}
		rollup, err := e.db.GetStoreRollup(storeID, day)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := e.cache.SetJSON(ctx, key, rollup); err != nil {
			e.logFn("engine: cache store %d rollup %s: %v", storeID, day, err)
		}
		out = append(out, rollup)
	}
	return out, nil
}

func (e *Engine) MergedActivity(staffID int64, fromDay, toDay string) ([]*timeline.ActivityRecord, error) {
	return e.merger.MergedActivity(staffID, fromDay, toDay)
}

func (e *Engine) checkConnectionStatus() {
	if e.msgClient == nil {
		return
	}
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else {
		if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}

// ReconfigureMessaging reconnects messaging with current config.
func (e *Engine) ReconfigureMessaging() {
	if e.msgClient == nil {
		return
	}
	if err := e.msgClient.Reconfigure(&e.cfg.Messaging); err != nil {
		e.logFn("engine: messaging reconfigure error: %v", err)
	} else {
		e.logFn("engine: messaging reconfigured")
	}
	e.checkConnectionStatus()
}
