package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dukerupert/routiner/internal/backup"
	"github.com/dukerupert/routiner/internal/config"
	"github.com/dukerupert/routiner/internal/handler"
	"github.com/dukerupert/routiner/internal/middleware"
	"github.com/dukerupert/routiner/internal/push"
	"github.com/dukerupert/routiner/internal/realtime"
	"github.com/dukerupert/routiner/internal/store"
	"github.com/dukerupert/routiner/internal/syncstatus"
	ws "github.com/dukerupert/routiner/internal/websocket"
)

// writeLimit bounds mutating API calls per client IP.
const (
	writeLimit  = 120
	writePeriod = time.Minute
)

type Server struct {
	svc           *realtime.Service
	hub           *ws.Hub
	routineH      *handler.RoutineHandler
	completionH   *handler.CompletionHandler
	backupH       *handler.BackupHandler
	pushH         *handler.PushHandler
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	pushScheduler *push.Scheduler
	logger        *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// BackupConfig maps the file configuration onto the backup manager's.
func BackupConfig(cfg config.Config) backup.Config {
	b := cfg.Backup
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  b.Endpoint,
			Bucket:    b.Bucket,
			Region:    b.Region,
			AccessKey: b.AccessKey,
			SecretKey: b.SecretKey,
			Prefix:    b.Prefix,
		},
		DBPath:        cfg.DBPath,
		Passphrase:    b.Passphrase,
		Interval:      b.Interval,
		RetentionDays: b.RetentionDays,
	}
}

// New wires handlers around an already started realtime service.
func New(db *sql.DB, svc *realtime.Service, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	svc.OnSyncStatus(func(s syncstatus.Status) {
		hub.Broadcast(ws.Message{
			Type:   "sync_status",
			Entity: "sync",
			Action: string(s.State),
			Extra: map[string]any{
				"label":   s.Label,
				"error":   s.Error,
				"pending": s.Pending,
			},
		})
	})

	backupStore := store.NewBackupStore(db)
	backupMgr := backup.NewManager(BackupConfig(cfg), db, backupStore, logger.With("component", "backup"), func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	// Push notification service + scheduler
	pushCfg := push.Config{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
		Subject:         cfg.Push.Subject,
	}
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if pushCfg.Enabled() {
		pushSt := store.NewPushStore(db)
		pushSvc := push.NewService(pushCfg)
		pushSched = push.NewScheduler(pushSvc, pushSt, svc, cfg.Push.ReminderHour, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushSt, pushSvc, pushSched, logger.With("component", "push_handler"))
	}

	return &Server{
		svc:           svc,
		hub:           hub,
		routineH:      handler.NewRoutineHandler(svc, hub, logger.With("component", "routine")),
		completionH:   handler.NewCompletionHandler(svc, hub, logger.With("component", "completion")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		pushH:         pushH,
		rateLimiter:   middleware.NewRateLimiter(writeLimit, writePeriod),
		backupManager: backupMgr,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// Start launches the background workers. Stop ends them.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.rateLimiter.RunCleanup(ctx)
	}()

	s.backupManager.Start(ctx)
	if s.pushScheduler != nil {
		s.pushScheduler.Start(ctx)
	}
}

func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.backupManager.Stop()
	if s.pushScheduler != nil {
		s.pushScheduler.Stop()
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	limited := middleware.RateLimit(s.rateLimiter)
	write := func(h http.HandlerFunc) http.Handler { return limited(h) }

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.svc, s.logger.With("component", "ws_client")))

	mux.HandleFunc("GET /api/routines", s.routineH.List)
	mux.HandleFunc("GET /api/routines/{id}", s.routineH.Get)
	mux.Handle("POST /api/routines", write(s.routineH.Create))
	mux.Handle("PUT /api/routines/{id}", write(s.routineH.Update))
	mux.Handle("DELETE /api/routines/{id}", write(s.routineH.Delete))

	mux.HandleFunc("GET /api/completions", s.completionH.List)
	mux.Handle("POST /api/completions/toggle", write(s.completionH.Toggle))
	mux.HandleFunc("GET /api/calendar", s.completionH.Calendar)
	mux.HandleFunc("GET /api/sync", s.completionH.SyncStatus)

	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.Handle("POST /api/backups", write(s.backupH.Run))
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)

	// Push notification API routes
	if s.pushH != nil {
		mux.Handle("POST /api/push/subscribe", write(s.pushH.Subscribe))
		mux.Handle("DELETE /api/push/subscriptions/{id}", write(s.pushH.Unsubscribe))
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.Handle("POST /api/push/test", write(s.pushH.TestNotification))
	}

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"sync":    s.svc.SyncStatus().State,
		"clients": s.hub.ClientCount(),
	})
}
