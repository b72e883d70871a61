package realtime

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dukerupert/routiner/internal/database"
	"github.com/dukerupert/routiner/internal/model"
	"github.com/dukerupert/routiner/internal/schedule"
	"github.com/dukerupert/routiner/internal/store"
	"github.com/dukerupert/routiner/internal/syncstatus"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setupService(t *testing.T) *Service {
	t.Helper()
	svc, _ := setupServiceDB(t)
	return svc
}

func setupServiceDB(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	logger := slog.Default()
	svc := New(
		store.NewRoutineStore(db),
		store.NewCompletionStore(db),
		syncstatus.New(time.Minute, logger),
		logger,
	)
	t.Cleanup(func() {
		svc.Close()
		db.Close()
	})
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return svc, db
}

// next waits for the next value on ch or fails the test.
func next[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero T
	return zero
}

func TestStartConfirmsSync(t *testing.T) {
	svc := setupService(t)
	if got := svc.SyncStatus().State; got != syncstatus.StateSynced {
		t.Errorf("state = %q, want synced", got)
	}
}

func TestSubscribeRoutinesDeliversInitialAndUpdates(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	ch := make(chan []model.Routine, 8)
	unsub := svc.SubscribeRoutines(func(rs []model.Routine) { ch <- rs })
	defer unsub()

	if got := next(t, ch); len(got) != 0 {
		t.Fatalf("initial snapshot has %d routines, want 0", len(got))
	}

	r, err := svc.CreateRoutine(ctx, model.RoutineFields{Name: "Hydrate", Days: model.NewWeekdays(1, 2, 3, 4, 5)})
	if err != nil {
		t.Fatalf("create routine: %v", err)
	}
	got := next(t, ch)
	if len(got) != 1 || got[0].ID != r.ID {
		t.Fatalf("snapshot after create = %+v", got)
	}

	if _, err := svc.UpdateRoutine(ctx, r.ID, model.RoutineFields{Name: "Drink water", Days: r.Days}); err != nil {
		t.Fatalf("update routine: %v", err)
	}
	got = next(t, ch)
	if got[0].Name != "Drink water" {
		t.Errorf("name = %q, want %q", got[0].Name, "Drink water")
	}

	if err := svc.DeleteRoutine(ctx, r.ID); err != nil {
		t.Fatalf("delete routine: %v", err)
	}
	if got := next(t, ch); len(got) != 0 {
		t.Errorf("snapshot after delete has %d routines", len(got))
	}
}

func TestToggleRoundTrip(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	r, _ := svc.CreateRoutine(ctx, model.RoutineFields{Name: "Read", Days: model.EveryDay()})

	march := schedule.Month{Year: 2024, Month: time.March}
	ch := make(chan model.CompletionMap, 8)
	unsub := svc.SubscribeCompletions(march, func(m model.CompletionMap) { ch <- m })
	defer unsub()
	next(t, ch)

	if err := svc.ToggleCompletion(ctx, "2024-03-05", r.ID, false); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	m := next(t, ch)
	if !schedule.IsDone(m, "2024-03-05", r.ID) {
		t.Fatal("expected slot done after toggling from false")
	}

	if err := svc.ToggleCompletion(ctx, "2024-03-05", r.ID, true); err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	m = next(t, ch)
	if schedule.IsDone(m, "2024-03-05", r.ID) {
		t.Fatal("expected slot not done after toggling from true")
	}

	done, err := svc.IsDone("2024-03-05", r.ID)
	if err != nil || done {
		t.Errorf("IsDone = %v, %v; want false, nil", done, err)
	}
}

func TestToggleOtherMonthNotPublished(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	r, _ := svc.CreateRoutine(ctx, model.RoutineFields{Name: "Read", Days: model.EveryDay()})

	ch := make(chan model.CompletionMap, 8)
	unsub := svc.SubscribeCompletions(schedule.Month{Year: 2024, Month: time.March}, func(m model.CompletionMap) { ch <- m })
	defer unsub()
	next(t, ch)

	if err := svc.ToggleCompletion(ctx, "2024-04-01", r.ID, false); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	select {
	case m := <-ch:
		t.Errorf("march subscriber received %v for an april write", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestToggleRejectsBadInput(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	if err := svc.ToggleCompletion(ctx, "2024-13-01", "x", false); err == nil {
		t.Error("expected error for malformed date")
	}
	if err := svc.ToggleCompletion(ctx, "2024-03-01", "missing", false); !errors.Is(err, ErrRoutineNotFound) {
		t.Errorf("err = %v, want ErrRoutineNotFound", err)
	}
	if got := svc.SyncStatus().State; got != syncstatus.StateSynced {
		t.Errorf("rejected input changed sync state to %q", got)
	}
}

func TestFailedWriteKeepsSnapshot(t *testing.T) {
	svc, db := setupServiceDB(t)
	ctx := context.Background()
	r, _ := svc.CreateRoutine(ctx, model.RoutineFields{Name: "Read", Days: model.EveryDay()})
	if err := svc.ToggleCompletion(ctx, "2024-03-04", r.ID, false); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	march := schedule.Month{Year: 2024, Month: time.March}
	ch := make(chan model.CompletionMap, 8)
	unsub := svc.SubscribeCompletions(march, func(m model.CompletionMap) { ch <- m })
	defer unsub()
	before := next(t, ch)

	_, err := db.Exec(`CREATE TRIGGER reject_completions BEFORE INSERT ON completions
		BEGIN SELECT RAISE(ABORT, 'storage rejected write'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if err := svc.ToggleCompletion(ctx, "2024-03-05", r.ID, false); err == nil {
		t.Fatal("expected toggle to fail")
	}

	s := svc.SyncStatus()
	if s.State != syncstatus.StateError || s.Error == "" {
		t.Errorf("sync status = %q (%q), want error with message", s.State, s.Error)
	}
	select {
	case m := <-ch:
		t.Errorf("failed write published %v", m)
	case <-time.After(50 * time.Millisecond):
	}
	if !schedule.IsDone(before, "2024-03-04", r.ID) || schedule.IsDone(before, "2024-03-05", r.ID) {
		t.Errorf("previous snapshot changed: %v", before)
	}
	if done, err := svc.IsDone("2024-03-05", r.ID); err != nil || done {
		t.Errorf("IsDone = %v, %v; want false, nil", done, err)
	}

	// Once storage accepts writes again the next toggle is confirmed.
	if _, err := db.Exec(`DROP TRIGGER reject_completions`); err != nil {
		t.Fatalf("drop trigger: %v", err)
	}
	if err := svc.ToggleCompletion(ctx, "2024-03-05", r.ID, false); err != nil {
		t.Fatalf("toggle after recovery: %v", err)
	}
	if m := next(t, ch); !schedule.IsDone(m, "2024-03-05", r.ID) {
		t.Errorf("snapshot after recovery = %v", m)
	}
	if got := svc.SyncStatus().State; got != syncstatus.StateSynced {
		t.Errorf("state after recovery = %q, want synced", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	svc := setupService(t)

	ch := make(chan []model.Routine, 8)
	unsub := svc.SubscribeRoutines(func(rs []model.Routine) { ch <- rs })
	next(t, ch)
	unsub()
	unsub()

	if _, err := svc.CreateRoutine(context.Background(), model.RoutineFields{Name: "Late"}); err != nil {
		t.Fatalf("create routine: %v", err)
	}
	select {
	case rs := <-ch:
		t.Errorf("unsubscribed callback received %d routines", len(rs))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWriteReportsSyncing(t *testing.T) {
	svc := setupService(t)

	states := make(chan syncstatus.State, 8)
	svc.OnSyncStatus(func(s syncstatus.Status) { states <- s.State })

	if _, err := svc.CreateRoutine(context.Background(), model.RoutineFields{Name: "Stretch"}); err != nil {
		t.Fatalf("create routine: %v", err)
	}
	if got := next(t, states); got != syncstatus.StateSyncing {
		t.Errorf("first state = %q, want syncing", got)
	}
	if got := next(t, states); got != syncstatus.StateSynced {
		t.Errorf("second state = %q, want synced", got)
	}
}

func TestCanceledContextSkipsWrite(t *testing.T) {
	svc := setupService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.CreateRoutine(ctx, model.RoutineFields{Name: "Never"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	routines, _ := svc.Routines()
	if len(routines) != 0 {
		t.Errorf("expected no routines, got %d", len(routines))
	}
}

func TestSubscriptionKeepsLatestOnly(t *testing.T) {
	release := make(chan struct{})
	got := make(chan int, 8)
	sub := newSubscription(func(v int) {
		<-release
		got <- v
	})
	defer sub.close()

	sub.offer(1)
	// Wait until the first value is being delivered.
	time.Sleep(20 * time.Millisecond)
	sub.offer(2)
	sub.offer(3)
	close(release)

	if v := next(t, got); v != 1 {
		t.Errorf("first = %d, want 1", v)
	}
	if v := next(t, got); v != 3 {
		t.Errorf("second = %d, want 3", v)
	}
	select {
	case v := <-got:
		t.Errorf("unexpected extra delivery %d", v)
	case <-time.After(30 * time.Millisecond):
	}
}
