package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hmuroya/taskward/internal/config"
	"github.com/hmuroya/taskward/internal/eventbus"
	"github.com/hmuroya/taskward/internal/notify"
	"github.com/hmuroya/taskward/internal/scheduler"
	"github.com/hmuroya/taskward/internal/server"
	"github.com/hmuroya/taskward/internal/service"
	subscriptionrepo "github.com/hmuroya/taskward/internal/subscription/repositoryimpl"
	taskrepo "github.com/hmuroya/taskward/internal/task/repositoryimpl"
	"github.com/hmuroya/taskward/pkg/clog"
	"github.com/hmuroya/taskward/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	var localStore *storage.LocalStorage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		localStore, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
		store = localStore
	}

	// Setup calendar
	calCfg, err := env.CalendarEnv.CalendarConfig()
	if err != nil {
		slog.Error("failed to resolve business calendar", "error", err)
		os.Exit(1)
	}

	// Setup event bus and repositories
	bus := eventbus.New()
	repo := taskrepo.NewYAMLRepository(store)
	subRepo := subscriptionrepo.NewYAMLRepository(store)

	// Setup notification fan-out
	dispatcher := notify.NewDispatcher(map[notify.Target]notify.Sink{
		notify.TargetInApp:   notify.SlogSink{},
		notify.TargetChannel: notify.SlogSink{},
		notify.TargetDirectMessage: notify.NewWebPushSink(notify.VAPIDConfig{
			PublicKey:  env.VAPIDPublicKey,
			PrivateKey: env.VAPIDPrivateKey,
			Contact:    env.VAPIDContact,
		}, subRepo),
	})

	svc := service.New(repo, service.Config{
		Calendar:         calCfg,
		ArchiveAfter:     env.MaintenanceEnv.ArchiveAfter(),
		Retention:        env.MaintenanceEnv.Retention(),
		ReminderThrottle: env.MaintenanceEnv.ReminderThrottle,
	}, bus, dispatcher)

	sched := scheduler.New(svc, env.MaintenanceEnv.SweepInterval)
	srv := server.NewServer(env, svc, bus, subRepo)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go sched.Start(ctx)

	// Watch the local task document for out-of-band edits so live-update
	// subscribers stay in sync even when the file is edited by hand.
	if localStore != nil {
		watcher := taskrepo.NewDocumentWatcher(localStore.Path(taskrepo.DocumentPath), func() {
			bus.PublishNew(eventbus.EventTypeTaskSynced, "", map[string]string{"reason": "document_changed"})
		})
		go func() {
			if err := watcher.Start(ctx); err != nil {
				slog.Warn("document watcher exited", "error", err)
			}
		}()
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after stream contexts are cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
