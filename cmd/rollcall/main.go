package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/logging"
	"rollcall/internal/metrics"
	"rollcall/internal/report"
	"rollcall/internal/store"
)

func main() {
	cfg := config.Load()
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kv, closeFn, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("storage unavailable")
	}
	defer closeFn()

	a := newApp(cfg, kv, log, prometheus.NewRegistry())
	if err := a.run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		closeFn()
		os.Exit(1)
	}
}

func openStorage(ctx context.Context, cfg config.App, log zerolog.Logger) (store.Storage, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		log.Warn().Msg("memory backend: nothing survives this process")
		return store.NewMemory(), func() {}, nil
	case "redis":
		r := store.NewRedis(cfg.RedisAddr, cfg.StoragePrefix)
		if !r.Healthy(ctx) {
			_ = r.Close()
			return nil, nil, fmt.Errorf("redis not reachable at %s", cfg.RedisAddr)
		}
		return r, func() { _ = r.Close() }, nil
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	case "sqlite", "":
		db, err := store.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

type app struct {
	sessions *auth.Sessions
	svc      *attendance.Service
	engine   *report.Engine
	log      zerolog.Logger
}

func newApp(cfg config.App, kv store.Storage, log zerolog.Logger, reg prometheus.Registerer) *app {
	sessions := auth.NewSessions(kv, auth.Options{
		Key:        cfg.SessionKey,
		SigningKey: cfg.JWTSigningKey,
		Issuer:     cfg.JWTIssuer,
		TTL:        cfg.AccessTTL,
	})
	repo := attendance.NewRepository(kv, attendance.Keys{Students: cfg.StudentsKey, Records: cfg.AttendanceKey}, log, metrics.NewStore(reg))
	svc := attendance.NewService(repo, sessions, log)
	return &app{sessions: sessions, svc: svc, engine: report.NewEngine(svc), log: log}
}

// run executes one command line against a fresh command tree.
func (a *app) run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
