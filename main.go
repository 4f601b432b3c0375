// Command coursechat is the private messaging agent for the e-learning
// platform. It:
//   - Loads configuration and initializes structured logging.
//   - Authenticates against the platform and resolves its own user record.
//   - Connects to Postgres and runs idempotent migrations for the transcript
//     archive.
//   - Owns the set of open chat sessions and their polling loops.
//   - Exposes an HTTP surface: /healthz, /readyz, /status, /metrics, session
//     control, an SSE live feed, and transcript replay.
//
// Shutdown is graceful on SIGINT/SIGTERM: every session is closed and its
// poller drained before exit.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/johnyUofL/coursechat/chat"
	"github.com/johnyUofL/coursechat/config"
	"github.com/johnyUofL/coursechat/db"
	"github.com/johnyUofL/coursechat/platformapi"
	"github.com/johnyUofL/coursechat/server"
	"github.com/johnyUofL/coursechat/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("platform credentials missing", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("coursechat", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Platform API client. The token source logs in lazily; fetch one token up
	// front so a bad credential pair fails fast.
	ts := &platformapi.TokenSource{
		BaseURL:  cfg.PlatformBaseURL,
		Username: cfg.PlatformUsername,
		Password: cfg.PlatformPassword,
	}
	api := &platformapi.Client{BaseURL: cfg.PlatformBaseURL, TokenSource: ts}
	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 10*time.Second)
	if tok, err := ts.Get(bootCtx); err != nil {
		slog.Error("platform login failed", slog.Any("err", err))
		cancelBoot()
		os.Exit(1)
	} else if len(tok) > 6 {
		slog.Info("platform token acquired", slog.String("tail", "***"+tok[len(tok)-6:]))
	}
	self, err := api.FindUser(bootCtx, cfg.PlatformUsername)
	cancelBoot()
	if err != nil {
		slog.Error("failed to resolve own user record", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("acting as", slog.Int("user_id", self.ID), slog.String("username", self.Username))

	// DB (transcript archive). A connection failure degrades to archive-less
	// operation rather than refusing to chat.
	var database *sql.DB
	if d, err := db.Connect(cfg.DBDsn); err != nil {
		slog.Warn("transcript archive disabled: failed to open db", slog.Any("err", err))
	} else {
		database = d
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		// Versioned migrations first, embedded SQL as fallback for deployments
		// predating the schema_migrations table.
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.RunMigrations(database); err != nil {
			slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
				slog.Any("err", err),
				slog.String("component", "db_migrate"))
			if err := db.Migrate(context.Background(), database); err != nil {
				slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
				os.Exit(1)
			}
		}
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Display sinks: structured log always, SSE hub for the HTTP feed,
	// transcript archive when the DB is up.
	hub := server.NewHub()
	display := chat.MultiDisplay{&chat.LogDisplay{}, hub}
	if database != nil {
		display = append(display, &chat.ArchiveSink{DB: database})
	}
	mgr := chat.NewManager(ctx, api, self, cfg.PollInterval, display, &chat.LogNotifier{})

	// Optional auto-open at boot.
	if cfg.OpenUserID != 0 {
		openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		other, err := api.GetUser(openCtx, cfg.OpenUserID)
		if err == nil {
			_, err = mgr.OpenChat(openCtx, other)
		}
		cancel()
		if err != nil {
			slog.Warn("auto-open chat failed", slog.Int("user_id", cfg.OpenUserID), slog.Any("err", err))
		}
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/status/metrics/session control)
	go func() {
		if err := server.Start(ctx, server.Deps{DB: database, Manager: mgr, API: api, Hub: hub}, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal, then drain sessions.
	<-ctx.Done()
	slog.Info("shutting down")
	mgr.CloseAll()
}
