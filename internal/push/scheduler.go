package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/routiner/internal/model"
	"github.com/dukerupert/routiner/internal/schedule"
	"github.com/dukerupert/routiner/internal/store"
)

// Sender delivers one payload to one subscription.
type Sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Source supplies the routines and completions a reminder is computed from.
type Source interface {
	Routines() ([]model.Routine, error)
	Completions(month schedule.Month) (model.CompletionMap, error)
}

// Scheduler sends one reminder a day, at or after the configured hour,
// listing the routines due today that are not done yet.
type Scheduler struct {
	mu       sync.RWMutex
	sender   Sender
	push     *store.PushStore
	source   Source
	hour     int
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a reminder scheduler. hour is in host local time.
func NewScheduler(sender Sender, pushStore *store.PushStore, source Source, hour int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sender:   sender,
		push:     pushStore,
		source:   source,
		hour:     hour,
		interval: 60 * time.Second,
		now:      time.Now,
		logger:   logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	now := s.now()
	if now.Hour() < s.hour {
		return
	}

	refID := "reminder-" + schedule.DateString(now)
	sent, err := s.push.WasSent(refID)
	if err != nil {
		s.logger.Warn("check reminder sent", "ref", refID, "error", err)
		return
	}
	if sent {
		return
	}

	pending, err := s.Pending(now)
	if err != nil {
		s.logger.Error("compute pending routines", "error", err)
		return
	}
	if len(pending) > 0 {
		s.Notify(ReminderPayload(pending))
	}

	if err := s.push.RecordSent(refID); err != nil {
		s.logger.Warn("record reminder sent", "ref", refID, "error", err)
	}
	if err := s.push.CleanupSent(now.AddDate(0, 0, -30)); err != nil {
		s.logger.Warn("cleanup sent notifications", "error", err)
	}
}

// Pending returns the routines due on now's date that are not done, in
// display order with the everyday track last.
func (s *Scheduler) Pending(now time.Time) ([]model.Routine, error) {
	routines, err := s.source.Routines()
	if err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	completions, err := s.source.Completions(schedule.MonthOf(now))
	if err != nil {
		return nil, fmt.Errorf("load completions: %w", err)
	}

	date := schedule.DateString(now)
	var pending []model.Routine
	for _, r := range schedule.Resolve(routines, now.Weekday()).All() {
		if !schedule.IsDone(completions, date, r.ID) {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// Notify sends payload to every subscription and drops expired ones. It
// returns the number of successful sends.
func (s *Scheduler) Notify(payload Payload) int {
	subs, err := s.push.List()
	if err != nil {
		s.logger.Error("list push subscriptions", "error", err)
		return 0
	}

	sent := 0
	for _, sub := range subs {
		if err := s.sender.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.push.DeleteByEndpoint(sub.Endpoint)
			} else {
				s.logger.Warn("send reminder", "endpoint", sub.Endpoint, "error", err)
			}
			continue
		}
		sent++
	}
	return sent
}

// ReminderPayload builds the notification for a non-empty pending list.
func ReminderPayload(pending []model.Routine) Payload {
	body := fmt.Sprintf("%s %s is still to do today", pending[0].Icon, pending[0].Name)
	if len(pending) > 1 {
		names := make([]string, len(pending))
		for i, r := range pending {
			names[i] = r.Name
		}
		body = fmt.Sprintf("%d routines left today: %s", len(pending), strings.Join(names, ", "))
	}
	return Payload{
		Title: "Routine reminder",
		Body:  strings.TrimSpace(body),
		URL:   "/",
		Tag:   "routine-daily",
	}
}
