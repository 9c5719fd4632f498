package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nvoronchev/platform-auth/internal/audit"
	"github.com/nvoronchev/platform-auth/internal/events"
	"github.com/nvoronchev/platform-auth/internal/httpserver"
	"github.com/nvoronchev/platform-auth/internal/lockout"
	"github.com/nvoronchev/platform-auth/internal/repo"
	"github.com/nvoronchev/platform-auth/internal/revocation"
	"github.com/nvoronchev/platform-auth/internal/service"
	"github.com/nvoronchev/platform-auth/pkg/config"
	"github.com/nvoronchev/platform-auth/pkg/db"
	"github.com/nvoronchev/platform-auth/pkg/hash"
	"github.com/nvoronchev/platform-auth/pkg/logging"
	loggingmw "github.com/nvoronchev/platform-auth/pkg/middleware/logging"
	"github.com/nvoronchev/platform-auth/pkg/tokens"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := repo.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var sinks events.Multi
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic)
		defer producer.Close()
		sinks = append(sinks, producer)
	}
	if cfg.ESURL != "" {
		indexer, err := audit.NewIndexer(cfg.ESURL, cfg.ESUser, cfg.ESPassword, cfg.AuditIndex)
		if err != nil {
			log.Fatalf("audit indexer init error: %v", err)
		}
		sinks = append(sinks, indexer)
	}
	var sink events.Sink
	if len(sinks) > 0 {
		sink = sinks
	}

	registry := revocation.NewMemoryStore()
	guard := lockout.NewGuard(cfg.LockoutThreshold, cfg.LockoutWindow, cfg.LockoutDuration)

	svc := &service.AuthService{
		Repo:     &repo.GormRepo{DB: gdb},
		Codec:    tokens.NewCodec(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.ServiceName, cfg.ClockSkew),
		Registry: registry,
		Guard:    guard,
		Hasher: hash.New(hash.Params{
			MemoryKiB: cfg.ArgonMemoryKiB,
			Time:      cfg.ArgonTime,
			Threads:   cfg.ArgonThreads,
		}),
		Events:     sink,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}

	bootCtx := logging.IntoContext(context.Background(), logger)
	if err := svc.Bootstrap(bootCtx, cfg.AdminPassword); err != nil {
		log.Fatalf("admin bootstrap error: %v", err)
	}

	sweepStop := make(chan struct{})
	go sweep(registry, guard, cfg.PurgeInterval, logger, sweepStop)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	close(sweepStop)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}

// sweep drops expired revocation entries and idle lockout counters. It never
// touches live entries, so it can run while requests are in flight.
func sweep(registry revocation.Registry, guard *lockout.Guard, every time.Duration, logger *slog.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			removed, err := registry.PurgeExpired(context.Background(), now.UTC())
			if err != nil {
				logger.Error("revocation purge failed", "error", err)
				continue
			}
			idle := guard.PurgeIdle(now.UTC())
			if removed > 0 || idle > 0 {
				logger.Debug("sweep completed", "revocations_purged", removed, "counters_purged", idle)
			}
		}
	}
}
