// Package cli is the interactive front end: a small REPL over the sync core.
// It is also the composition root, the only place where the store, outbox,
// scheduler, reconciler, and remote transport are wired together.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"os"

	"github.com/avolkov/leadbook/internal/client/backup"
	"github.com/avolkov/leadbook/internal/client/config"
	"github.com/avolkov/leadbook/internal/client/diagnostics"
	"github.com/avolkov/leadbook/internal/client/outbox"
	"github.com/avolkov/leadbook/internal/client/reconciler"
	"github.com/avolkov/leadbook/internal/client/remote"
	"github.com/avolkov/leadbook/internal/client/repositories/metadata"
	"github.com/avolkov/leadbook/internal/client/repositories/records"
	"github.com/avolkov/leadbook/internal/client/scheduler"
	"github.com/avolkov/leadbook/internal/client/session"
	"github.com/avolkov/leadbook/internal/client/status"
	"github.com/avolkov/leadbook/internal/client/store"
	"github.com/avolkov/leadbook/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	db       *sql.DB
	store    *store.Store
	outbox   *outbox.Outbox
	tracker  *status.Tracker
	sched    *scheduler.Scheduler
	recon    *reconciler.Reconciler
	sessions *session.Manager
	remote   *remote.SurrealRemote
	probe    *diagnostics.Probe
	archive  *backup.Service
	reader   *bufio.Reader

	// ownerId is set on login and cleared on logout.
	ownerId string
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	db, err := InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	metaRepo := metadata.NewSQLiteRepository(db)
	repo := records.NewSQLiteRepository(db)

	sessions := session.NewManager(metaRepo, log)
	rmt := remote.NewSurrealRemote(remote.Config{
		URL:       cfg.RemoteURL,
		Namespace: cfg.RemoteNamespace,
		Database:  cfg.RemoteDatabase,
		Scope:     cfg.RemoteScope,
	}, log)

	st := store.New(db, log)
	ob := outbox.New(db)
	tracker := status.NewTracker()

	recon := reconciler.New(repo, st, rmt, sessions, log)
	recon.SetTolerance(cfg.DriftTolerance)

	sched := scheduler.New(recon, sessions, ob, tracker, log,
		scheduler.Config{QuiescenceDelay: cfg.QuiescenceDelay})

	var uploader backup.Uploader
	if cfg.S3Bucket != "" {
		up, err := backup.NewS3Uploader(ctx, backup.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		uploader = up
	}

	app := &App{
		config:   cfg,
		log:      log,
		db:       db,
		store:    st,
		outbox:   ob,
		tracker:  tracker,
		sched:    sched,
		recon:    recon,
		sessions: sessions,
		remote:   rmt,
		probe:    diagnostics.New(repo, rmt, sessions, log),
		archive:  backup.New(st, st, uploader, log),
		reader:   bufio.NewReader(os.Stdin),
	}

	// every local mutation feeds the scheduler's debounce window
	st.Subscribe(sched.RecordChanged)
	recon.SetWake(func() {
		if app.ownerId != "" {
			sched.RecordChanged(app.ownerId)
		}
	})

	return app, nil
}

func (a *App) isLoggedIn() bool {
	return a.ownerId != ""
}

func (a *App) Run(ctx context.Context) {
	// exactly one owner of the visibility signals, registered here and
	// nowhere else
	go a.watchVisibility(ctx)

	a.restoreSession(ctx)
	a.Root(ctx)

	a.sched.Stop()
	a.remote.Close()
	_ = a.db.Close()
}

// restoreSession picks up a cached, still-valid session so a restart does
// not force a new login. Pending records re-arm the scheduler immediately.
func (a *App) restoreSession(ctx context.Context) {
	sess, err := a.sessions.Current(ctx)
	if err != nil {
		return
	}
	a.ownerId = sess.UserId
	a.log.Info(ctx, "session restored", "user_id", sess.UserId)
	a.sched.AppVisible(ctx, a.ownerId)
}
