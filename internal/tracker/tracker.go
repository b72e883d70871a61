// Package tracker holds the state one viewer of the calendar works against:
// the month on screen, the latest routine and completion snapshots, and the
// single live completion subscription for that month.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dukerupert/routiner/internal/calendar"
	"github.com/dukerupert/routiner/internal/model"
	"github.com/dukerupert/routiner/internal/schedule"
)

// ErrOutsideMonth is returned when toggling a date that is not in the month
// being viewed.
var ErrOutsideMonth = errors.New("date is outside the displayed month")

// ErrClosed is returned by operations on a closed View.
var ErrClosed = errors.New("view closed")

// Source is the live data a View subscribes to and writes through.
type Source interface {
	SubscribeRoutines(fn func([]model.Routine)) (unsubscribe func())
	SubscribeCompletions(month schedule.Month, fn func(model.CompletionMap)) (unsubscribe func())
	ToggleCompletion(ctx context.Context, date, routineID string, currentlyDone bool) error
}

// RenderFunc receives every new month snapshot, in order. It must not call
// back into the View.
type RenderFunc func(calendar.Snapshot)

type Option func(*View)

// WithClock overrides the clock used for the "today" flag.
func WithClock(now func() time.Time) Option {
	return func(v *View) { v.now = now }
}

// View is the presentation context. It never edits the snapshots it is
// given; a toggle only shows up once the source pushes a new snapshot.
type View struct {
	mu       sync.Mutex
	renderMu sync.Mutex

	source Source
	render RenderFunc
	now    func() time.Time

	month       schedule.Month
	routines    []model.Routine
	completions model.CompletionMap

	// gen identifies the live completion subscription. Callbacks carrying an
	// older value belong to a month that is no longer shown.
	gen              uint64
	unsubRoutines    func()
	unsubCompletions func()
	started          bool
	closed           bool
}

func New(source Source, render RenderFunc, opts ...Option) *View {
	v := &View{
		source: source,
		render: render,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Start subscribes to routines and to the completions of month.
func (v *View) Start(month schedule.Month) error {
	if !month.Valid() {
		return fmt.Errorf("invalid month %d", month.Month)
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.started {
		v.mu.Unlock()
		return errors.New("view already started")
	}
	v.started = true
	v.mu.Unlock()

	unsub := v.source.SubscribeRoutines(v.onRoutines)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		unsub()
		return ErrClosed
	}
	v.unsubRoutines = unsub
	v.mu.Unlock()

	return v.Navigate(month)
}

// Navigate switches the view to month. The previous completion subscription
// is cancelled before the new one is opened.
func (v *View) Navigate(month schedule.Month) error {
	if !month.Valid() {
		return fmt.Errorf("invalid month %d", month.Month)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}

	if v.unsubCompletions != nil {
		v.unsubCompletions()
		v.unsubCompletions = nil
	}
	v.gen++
	gen := v.gen
	v.month = month
	v.completions = nil

	// The source delivers on its own goroutine, so subscribing while holding
	// mu cannot deadlock; the first delivery waits for Navigate to return.
	v.unsubCompletions = v.source.SubscribeCompletions(month, func(m model.CompletionMap) {
		v.onCompletions(gen, m)
	})
	return nil
}

// Next moves to the following month.
func (v *View) Next() error {
	return v.Navigate(v.Month().Next())
}

// Prev moves to the preceding month.
func (v *View) Prev() error {
	return v.Navigate(v.Month().Prev())
}

// Month returns the month being viewed.
func (v *View) Month() schedule.Month {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.month
}

// Toggle flips a slot using the last delivered completion value. The
// snapshot is left untouched.
func (v *View) Toggle(ctx context.Context, date, routineID string) error {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return err
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if schedule.MonthOf(day) != v.month {
		v.mu.Unlock()
		return ErrOutsideMonth
	}
	done := schedule.IsDone(v.completions, date, routineID)
	v.mu.Unlock()

	return v.source.ToggleCompletion(ctx, date, routineID, done)
}

// Snapshot renders the current state. It reports false until both routines
// and completions for the current month have been delivered.
func (v *View) Snapshot() (calendar.Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Close cancels all subscriptions. Late deliveries are ignored.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.gen++
	if v.unsubCompletions != nil {
		v.unsubCompletions()
		v.unsubCompletions = nil
	}
	if v.unsubRoutines != nil {
		v.unsubRoutines()
		v.unsubRoutines = nil
	}
}

func (v *View) onRoutines(routines []model.Routine) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.routines = routines
	v.renderAndUnlock()
}

func (v *View) onCompletions(gen uint64, m model.CompletionMap) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	if m == nil {
		m = model.CompletionMap{}
	}
	v.completions = m
	v.renderAndUnlock()
}

func (v *View) snapshotLocked() (calendar.Snapshot, bool) {
	if v.routines == nil || v.completions == nil {
		return calendar.Snapshot{}, false
	}
	return calendar.Render(v.month, v.routines, v.completions, v.now()), true
}

// renderAndUnlock computes the snapshot under mu and hands it to render.
// renderMu is taken before mu is released so renders arrive in order.
func (v *View) renderAndUnlock() {
	snap, ok := v.snapshotLocked()
	if !ok || v.render == nil {
		v.mu.Unlock()
		return
	}
	v.renderMu.Lock()
	v.mu.Unlock()
	defer v.renderMu.Unlock()
	v.render(snap)
}
