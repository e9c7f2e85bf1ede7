package batch

import (
	"fmt"
	"log"
	"sync"
	"time"

	"opscore/config"
	"opscore/engine"
)

// UnitError records one failed aggregation unit within a batch run.
// A failed unit never aborts the run; the remaining units still execute.
type UnitError struct {
	Unit string `json:"unit"` // "staff:<id>" or "store:<id>"
	Day  string `json:"day"`
	Err  string `json:"error"`
}

// RunResult summarizes one batch run.
type RunResult struct {
	FromDay string      `json:"from_day"`
	ToDay   string      `json:"to_day"`
	Units   int         `json:"units"`
	Errors  []UnitError `json:"errors,omitempty"`
}

// Scheduler triggers the daily rollup run. Every CheckInterval it wakes,
// and once the clock passes RunAt (UTC) it aggregates the previous
// Lookback days for every active staff member and every store.
type Scheduler struct {
	eng *engine.Engine
	cfg config.SchedulerConfig

	mu       sync.Mutex
	lastRun  string // day stamp of the last completed scheduled run
	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(eng *engine.Engine, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		eng:    eng,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	if !s.cfg.Enabled {
		log.Printf("batch: scheduler disabled")
		return
	}
	go s.loop()
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Scheduler) loop() {
	interval := s.cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(time.Now().UTC())
		}
	}
}

func (s *Scheduler) tick(now time.Time) {
	runAt, err := time.Parse("15:04", s.cfg.RunAt)
	if err != nil {
		log.Printf("batch: bad run_at %q: %v", s.cfg.RunAt, err)
		return
	}
	due := time.Date(now.Year(), now.Month(), now.Day(), runAt.Hour(), runAt.Minute(), 0, 0, time.UTC)
	today := now.Format("2006-01-02")

	s.mu.Lock()
	alreadyRan := s.lastRun == today
	s.mu.Unlock()
	if alreadyRan || now.Before(due) {
		return
	}

	lookback := s.cfg.Lookback
	if lookback < 1 {
		lookback = 1
	}
	to := now.AddDate(0, 0, -1)
	from := now.AddDate(0, 0, -lookback)

	res, err := s.RunRange(from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		log.Printf("batch: scheduled run: %v", err)
		return
	}
	log.Printf("batch: scheduled run %s..%s: %d units, %d failures",
		res.FromDay, res.ToDay, res.Units, len(res.Errors))

	s.mu.Lock()
	s.lastRun = today
	s.mu.Unlock()
}

// RunRange re-aggregates every day in [fromDay, toDay] inclusive. Each
// staff-day and store-day is an independent unit; upserts make re-running
// a range over already-aggregated days safe.
func (s *Scheduler) RunRange(fromDay, toDay string) (*RunResult, error) {
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

	res := &RunResult{FromDay: fromDay, ToDay: toDay}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		s.runDay(d.Format("2006-01-02"), res)
	}

	s.eng.Events.Emit(engine.Event{
		Type: engine.EventBatchRunFinished,
		Payload: engine.BatchRunFinishedEvent{
			FromDay:  res.FromDay,
			ToDay:    res.ToDay,
			Units:    res.Units,
			Failures: len(res.Errors),
		},
	})
	return res, nil
}

// RunDay aggregates a single day for all active staff and all stores.
func (s *Scheduler) RunDay(day string) (*RunResult, error) {
	return s.RunRange(day, day)
}

func (s *Scheduler) runDay(day string, res *RunResult) {
	db := s.eng.DB()

	staffIDs, err := db.ListActiveStaffIDs(day)
	if err != nil {
		res.Errors = append(res.Errors, UnitError{Unit: "staff-scan", Day: day, Err: err.Error()})
	}
	for _, id := range staffIDs {
		res.Units++
		if _, err := s.eng.RunStaffRollup(id, day); err != nil {
			res.Errors = append(res.Errors, UnitError{
				Unit: fmt.Sprintf("staff:%d", id), Day: day, Err: err.Error(),
			})
		}
	}

	stores, err := db.ListStores()
	if err != nil {
		res.Errors = append(res.Errors, UnitError{Unit: "store-scan", Day: day, Err: err.Error()})
		return
	}
	for _, st := range stores {
		res.Units++
		if _, err := s.eng.RunStoreRollup(st.ID, day); err != nil {
			res.Errors = append(res.Errors, UnitError{
				Unit: fmt.Sprintf("store:%d", st.ID), Day: day, Err: err.Error(),
			})
		}
	}
}
