// Command backend is the main entrypoint for the stream-tender API and
// background workers. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts background workers: the category monitor feeding the game switch
//     orchestrator, the chat bot, and the Twitch OAuth token refresher.
//   - Exposes the HTTP server: health, metrics, OAuth onboarding, the overlay
//     event stream, and the dashboard API.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/stream-tender/backend/chatbot"
	"github.com/onnwee/stream-tender/backend/config"
	"github.com/onnwee/stream-tender/backend/counters"
	"github.com/onnwee/stream-tender/backend/db"
	"github.com/onnwee/stream-tender/backend/gameswitch"
	"github.com/onnwee/stream-tender/backend/monitor"
	"github.com/onnwee/stream-tender/backend/oauth"
	"github.com/onnwee/stream-tender/backend/overlay"
	"github.com/onnwee/stream-tender/backend/server"
	"github.com/onnwee/stream-tender/backend/store"
	"github.com/onnwee/stream-tender/backend/telemetry"
	"github.com/onnwee/stream-tender/backend/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load("backend/.env")

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

	// Metrics / telemetry init
	telemetry.Init()

	// OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("stream-tender", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	if err := cfg.ValidateHelixReady(); err != nil {
		slog.Warn("twitch api credentials missing; stream monitoring and channel updates disabled", slog.Any("err", err))
	}

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Versioned migrations first; embedded SQL as fallback for deployments
	// without the migrations directory on disk.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			os.Exit(1)
		}
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wiring: one store over the database, one overlay hub, one per-user
	// serializer shared by everything that can touch switch state.
	st := store.New(database)
	hub := overlay.NewHub()
	serializer := gameswitch.NewUserSerializer()

	helix := &twitchapi.HelixClient{
		AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
		UserTokens: &twitchapi.UserTokenSource{
			ClientID:     cfg.TwitchClientID,
			ClientSecret: cfg.TwitchClientSecret,
			Store:        &db.TokenStoreAdapter{DB: database},
		},
		ClientID: cfg.TwitchClientID,
	}

	orch := &gameswitch.Orchestrator{
		Contexts:           st,
		GameCounters:       st,
		GameChatCommands:   st,
		GameCustomCounters: st,
		Selections:         st,
		Active:             st,
		Library:            st,
		Profiles:           st,
		Channel:            &twitchapi.ChannelManager{Client: helix},
		Notifier:           hub,
	}

	counterSvc := &counters.Service{Store: st, Notifier: hub, Serializer: serializer}

	// Category monitor: detects game changes and feeds the orchestrator.
	if cfg.ValidateHelixReady() == nil {
		mon := &monitor.Monitor{
			Profiles:   st,
			Streams:    helix,
			Detector:   orch,
			Serializer: serializer,
			DB:         database,
		}
		go mon.Start(ctx)
	}

	// Chat bot (skips itself when creds are missing).
	go chatbot.StartBot(ctx, st, &chatbot.Responder{Store: st, Counters: counterSvc})

	// Background token refresher for every enrolled broadcaster.
	oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		res, err := twitchapi.RefreshToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken)
		if err != nil {
			return "", "", time.Time{}, "", err
		}
		return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " "), nil
	})

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

	// HTTP server
	go func() {
		deps := server.Deps{
			DB:         database,
			Store:      st,
			Hub:        hub,
			Orch:       orch,
			Serializer: serializer,
			Counters:   counterSvc,
			Helix:      helix,
		}
		if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
