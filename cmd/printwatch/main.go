package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/api"
	"github.com/printwatch/printwatch/internal/audit"
	"github.com/printwatch/printwatch/internal/channel"
	"github.com/printwatch/printwatch/internal/config"
	"github.com/printwatch/printwatch/internal/detect"
	"github.com/printwatch/printwatch/internal/dispatch"
	"github.com/printwatch/printwatch/internal/escalate"
	"github.com/printwatch/printwatch/internal/history"
	"github.com/printwatch/printwatch/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("printwatch starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	enabled := cfg.Notify.EnabledChannels()
	if len(enabled) == 0 {
		slog.Error("no notification channels enabled, refusing to start")
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"printers", len(cfg.Poll.Printers),
		"rules", len(cfg.Rules),
		"channels", enabled,
		"dedup_window", cfg.Dedup.Window,
		"escalation_base_delay", cfg.Escalation.BaseDelay,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Alert and escalation stores; alert history runs background TTL eviction.
	alertStore := history.NewMemoryAlertHistory(cfg.History.TTL)
	go alertStore.Run(ctx)
	escStore := history.NewMemoryEscalationHistory()

	// One adapter per enabled channel.
	var adapters []channel.Adapter
	if cfg.Notify.Email.Enabled {
		adapters = append(adapters, channel.NewEmail(cfg.Notify.Email))
	}
	if cfg.Notify.Slack.Enabled {
		adapters = append(adapters, channel.NewSlack(cfg.Notify.Slack))
	}
	if cfg.Notify.Teams.Enabled {
		adapters = append(adapters, channel.NewTeams(cfg.Notify.Teams))
	}
	if cfg.Notify.SMS.Enabled {
		adapters = append(adapters, channel.NewSMS(cfg.Notify.SMS))
	}

	engine := dispatch.New(adapters, audit.SlogSink{})

	escalator := escalate.New(escStore, engine, cfg.Escalation)
	defer escalator.Stop()

	channels := make([]alert.Channel, 0, len(enabled))
	for _, name := range enabled {
		channels = append(channels, alert.Channel(name))
	}
	dedup := alert.NewDeduplicator(alertStore, cfg.Dedup.Window)
	factory := alert.NewFactory(cfg.Notify.Recipients, channels)

	processor := detect.NewProcessor(dedup, factory, alertStore, engine, escalator)
	runner := detect.NewRunner(cfg.Poll, cfg.Rules, processor)
	go runner.Run(ctx)

	// Hot reload: rule and recipient changes take effect without a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(c *config.Config) {
			runner.SetRules(c.Rules)
			factory.SetRecipients(c.Notify.Recipients)
			escalator.SetTiers(c.Escalation.Supervisors, c.Escalation.Managers)
		}); err != nil {
			slog.Warn("config watch unavailable", "err", err)
		}
	}()

	// WebSocket hub broadcasts recent alerts to dashboard clients.
	hub := ws.New(alertStore, cfg.Server.WSInterval)
	go hub.Run(ctx)

	// Combined HTTP server: REST API + WebSocket hub on HTTPPort.
	handler := api.APIKeyMiddleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		api.New(alertStore, escStore, escalator),
	)
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", handler)
	httpMux.Handle("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("printwatch shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
