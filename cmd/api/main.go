package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"medicine-reminders/internal/adapters/auth/sessions"
	"medicine-reminders/internal/adapters/notify/gateway"
	"medicine-reminders/internal/adapters/notify/lognotify"
	"medicine-reminders/internal/platform/logger"
	"medicine-reminders/internal/ports/auth"
	"medicine-reminders/internal/ports/notify"
	"medicine-reminders/internal/router"
	"medicine-reminders/internal/trigger"
)

func main() {
	log := logger.NewFromEnv()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	// Verifier opcional: sin AUTH_BASE_URL queda modo dev (X-Debug-User-ID).
	var verifier auth.AuthVerifier
	if base := os.Getenv("AUTH_BASE_URL"); base != "" {
		v, err := sessions.NewVerifier(sessions.Config{
			BaseURL: base,
			APIKey:  os.Getenv("AUTH_API_KEY"),
		})
		if err != nil {
			log.Error("invalid auth config", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		verifier = v
	} else {
		log.Warn("auth verifier not configured, using debug header mode", nil)
	}

	// Notifier: gateway HTTP si está configurado, si no log-only (dev).
	var notifier notify.Notifier
	if base := os.Getenv("NOTIFY_GATEWAY_URL"); base != "" {
		n, err := gateway.New(gateway.Config{
			BaseURL: base,
			APIKey:  os.Getenv("NOTIFY_API_KEY"),
		})
		if err != nil {
			log.Error("invalid notify gateway config", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		notifier = n
	} else {
		notifier = lognotify.New(log)
	}

	// Repos compartidos entre el router y el trigger (mismo storage).
	remRepo, doseRepo := router.ResolveRepos(router.Options{})

	r := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		ReminderRepo: remRepo,
		DoseRepo:     doseRepo,
	})

	trg := trigger.New(doseRepo, remRepo, notifier, log)

	interval := time.Minute
	if v := os.Getenv("SCAN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}

	sched := trigger.NewScheduler(time.Local)
	if _, err := sched.ScheduleInterval(interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		if err := trg.Run(ctx); err != nil {
			log.Error("notification sweep failed", map[string]any{"error": err.Error()})
		}
	}); err != nil {
		log.Error("schedule sweep", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info("starting server", map[string]any{"addr": addr, "scan_interval": interval.String()})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
