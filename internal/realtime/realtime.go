// Package realtime is the persistence and live-update layer behind the
// calendar. It owns the sqlite stores, pushes fresh snapshots to subscribers
// after every write, and reports sync status while writes are in flight.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/routiner/internal/model"
	"github.com/dukerupert/routiner/internal/schedule"
	"github.com/dukerupert/routiner/internal/store"
	"github.com/dukerupert/routiner/internal/syncstatus"
)

// ErrRoutineNotFound is returned when a write names a routine that does not exist.
var ErrRoutineNotFound = errors.New("routine not found")

type completionSub struct {
	month schedule.Month
	sub   *subscription[model.CompletionMap]
}

// Service implements subscribe, write and sync status operations over the
// routine and completion stores.
type Service struct {
	routines    *store.RoutineStore
	completions *store.CompletionStore
	sync        *syncstatus.Machine
	logger      *slog.Logger

	mu             sync.Mutex
	nextID         uint64
	routineSubs    map[uint64]*subscription[[]model.Routine]
	completionSubs map[uint64]completionSub

	// pubMu serializes load-then-offer so an older snapshot can never be
	// offered after a newer one.
	pubMu sync.Mutex
}

func New(routines *store.RoutineStore, completions *store.CompletionStore, machine *syncstatus.Machine, logger *slog.Logger) *Service {
	return &Service{
		routines:       routines,
		completions:    completions,
		sync:           machine,
		logger:         logger,
		routineSubs:    make(map[uint64]*subscription[[]model.Routine]),
		completionSubs: make(map[uint64]completionSub),
	}
}

// Start moves sync status to connecting and confirms it once the store
// answers. If the load fails the status becomes error and the error is returned.
func (s *Service) Start() error {
	if err := s.sync.Connect(); err != nil {
		return fmt.Errorf("start sync: %w", err)
	}
	if _, err := s.routines.List(); err != nil {
		s.sync.Fail(err)
		return fmt.Errorf("initial load: %w", err)
	}
	s.confirm()
	return nil
}

// Close drops every subscription.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.routineSubs {
		sub.close()
		delete(s.routineSubs, id)
	}
	for id, cs := range s.completionSubs {
		cs.sub.close()
		delete(s.completionSubs, id)
	}
	s.sync.Stop()
}

// OnSyncStatus registers fn for every sync status change.
func (s *Service) OnSyncStatus(fn func(syncstatus.Status)) {
	s.sync.OnChange(fn)
}

// SyncStatus returns the current sync status.
func (s *Service) SyncStatus() syncstatus.Status {
	return s.sync.Status()
}

// SubscribeRoutines delivers the current routine list and then a fresh list
// after every routine write. The returned function cancels the subscription
// and may be called more than once.
func (s *Service) SubscribeRoutines(fn func([]model.Routine)) (unsubscribe func()) {
	sub := newSubscription(fn)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.routineSubs[id] = sub
	s.mu.Unlock()

	s.pubMu.Lock()
	if routines, ok := s.loadRoutines(); ok {
		sub.offer(routines)
	}
	s.pubMu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.routineSubs, id)
		s.mu.Unlock()
		sub.close()
	}
}

// SubscribeCompletions delivers the completion map for month and then a fresh
// map after every write touching that month.
func (s *Service) SubscribeCompletions(month schedule.Month, fn func(model.CompletionMap)) (unsubscribe func()) {
	sub := newSubscription(fn)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.completionSubs[id] = completionSub{month: month, sub: sub}
	s.mu.Unlock()

	s.pubMu.Lock()
	if m, ok := s.loadCompletions(month); ok {
		sub.offer(m)
	}
	s.pubMu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.completionSubs, id)
		s.mu.Unlock()
		sub.close()
	}
}

// Routines returns the current routine list.
func (s *Service) Routines() ([]model.Routine, error) {
	return s.routines.List()
}

// Routine returns a routine by id, or nil if it does not exist.
func (s *Service) Routine(id string) (*model.Routine, error) {
	return s.routines.GetByID(id)
}

// Completions returns the completion map for month.
func (s *Service) Completions(month schedule.Month) (model.CompletionMap, error) {
	start, end := month.DateRange()
	return s.completions.Snapshot(start, end)
}

// IsDone reports the stored done flag for a slot; a missing slot is not done.
func (s *Service) IsDone(date, routineID string) (bool, error) {
	c, err := s.completions.Get(date, routineID)
	if err != nil {
		return false, err
	}
	return c != nil && c.Done, nil
}

func (s *Service) CreateRoutine(ctx context.Context, f model.RoutineFields) (*model.Routine, error) {
	var r *model.Routine
	err := s.write(ctx, func() (err error) {
		r, err = s.routines.Create(f)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("routine created", "id", r.ID, "name", r.Name)
	s.publishRoutines()
	return r, nil
}

func (s *Service) UpdateRoutine(ctx context.Context, id string, f model.RoutineFields) (*model.Routine, error) {
	if err := s.requireRoutine(id); err != nil {
		return nil, err
	}
	var r *model.Routine
	err := s.write(ctx, func() (err error) {
		r, err = s.routines.Update(id, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRoutineNotFound
	}
	s.publishRoutines()
	return r, nil
}

// DeleteRoutine removes a routine together with its completions.
func (s *Service) DeleteRoutine(ctx context.Context, id string) error {
	if err := s.requireRoutine(id); err != nil {
		return err
	}
	if err := s.write(ctx, func() error { return s.routines.Delete(id) }); err != nil {
		return err
	}
	s.logger.Info("routine deleted", "id", id)
	s.publishRoutines()
	s.publishAllCompletions()
	return nil
}

// ToggleCompletion writes the negation of currentlyDone for the slot. The
// new value reaches subscribers through the next pushed snapshot.
func (s *Service) ToggleCompletion(ctx context.Context, date, routineID string, currentlyDone bool) error {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return err
	}
	if err := s.requireRoutine(routineID); err != nil {
		return err
	}
	err = s.write(ctx, func() error {
		_, err := s.completions.Set(date, routineID, !currentlyDone)
		return err
	})
	if err != nil {
		return err
	}
	s.publishCompletions(schedule.MonthOf(day))
	return nil
}

func (s *Service) requireRoutine(id string) error {
	r, err := s.routines.GetByID(id)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrRoutineNotFound
	}
	return nil
}

// write runs fn between BeginWrite and EndWrite. A failed write leaves
// subscribers on their previous snapshot.
func (s *Service) write(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w, err := s.sync.BeginWrite()
	if err != nil {
		s.logger.Debug("write outside a live session", "error", err)
	}
	err = fn()
	s.sync.EndWrite(w, err)
	if err != nil {
		s.logger.Error("write failed", "error", err)
	}
	return err
}

func (s *Service) confirm() {
	if err := s.sync.Confirm(); err != nil && !errors.Is(err, syncstatus.ErrInvalidTransition) {
		s.logger.Warn("confirm sync", "error", err)
	}
}

func (s *Service) loadRoutines() ([]model.Routine, bool) {
	routines, err := s.routines.List()
	if err != nil {
		s.logger.Error("load routines", "error", err)
		s.sync.Fail(err)
		return nil, false
	}
	if routines == nil {
		routines = []model.Routine{}
	}
	s.confirm()
	return routines, true
}

func (s *Service) loadCompletions(month schedule.Month) (model.CompletionMap, bool) {
	m, err := s.Completions(month)
	if err != nil {
		s.logger.Error("load completions", "month", month.Label(), "error", err)
		s.sync.Fail(err)
		return nil, false
	}
	s.confirm()
	return m, true
}

func (s *Service) publishRoutines() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	subs := make([]*subscription[[]model.Routine], 0, len(s.routineSubs))
	for _, sub := range s.routineSubs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	routines, ok := s.loadRoutines()
	if !ok {
		return
	}
	for _, sub := range subs {
		sub.offer(routines)
	}
}

func (s *Service) publishCompletions(month schedule.Month) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	var subs []*subscription[model.CompletionMap]
	s.mu.Lock()
	for _, cs := range s.completionSubs {
		if cs.month == month {
			subs = append(subs, cs.sub)
		}
	}
	s.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	m, ok := s.loadCompletions(month)
	if !ok {
		return
	}
	for _, sub := range subs {
		sub.offer(m)
	}
}

func (s *Service) publishAllCompletions() {
	months := map[schedule.Month]bool{}
	s.mu.Lock()
	for _, cs := range s.completionSubs {
		months[cs.month] = true
	}
	s.mu.Unlock()
	for month := range months {
		s.publishCompletions(month)
	}
}
