package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	apihttp "github.com/irtellezg/TrustonicReporting-Dashboard/internal/api/http"
	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/audit"
	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/auth"
	ingestapp "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/application"
	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/infrastructure/excel"
	ingestpg "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/infrastructure/postgres"
	ingestmetrics "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/metrics"
	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/notify"
	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/watch"
	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/observability/metrics"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	ctx := context.Background()
	if err := ingestpg.EnsureSchema(ctx, db); err != nil {
		logger.Fatalf("ensure schema error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	pipelineCfg, err := ingestapp.LoadConfig()
	if err != nil {
		logger.Fatalf("pipeline config error: %v", err)
	}

	fileStore := ingestpg.NewFileStore(db)
	processor := ingestapp.NewProcessor(
		excel.NewReader(),
		ingestpg.NewReportStore(db),
		fileStore,
		ingestpg.NewErrorStore(db),
		ingestmetrics.New(),
		logger,
	)

	var watchOpts []watch.Option
	if cfg.AlertWebhookURL != "" {
		channel, err := notify.NewWebhookChannel(cfg.AlertWebhookURL)
		if err != nil {
			logger.Fatalf("alert webhook error: %v", err)
		}
		tpl, err := notify.NewTemplate(cfg.AlertNotifyTemplate)
		if err != nil {
			logger.Fatalf("alert template error: %v", err)
		}
		alertNotifier, err := notify.NewRunNotifier(channel, tpl, notify.WithCooldown(cfg.AlertNotifyCooldown))
		if err != nil {
			logger.Fatalf("alert notifier error: %v", err)
		}
		watchOpts = append(watchOpts, watch.WithNotifier(alertNotifier))
	}

	watcher, err := watch.New(processor, fileStore, pipelineCfg, logger, watchOpts...)
	if err != nil {
		logger.Fatalf("watcher error: %v", err)
	}
	if err := watcher.Start(ctx); err != nil {
		logger.Fatalf("watcher start error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	filesHandler := apihttp.NewFilesHandler(db)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/devices", apihttp.NewDevicesHandler(db))
	mux.Handle("/api/v1/devices/summary", apihttp.NewDeviceSummaryHandler(db))
	mux.Handle("/api/v1/inventory", apihttp.NewInventoryHandler(db))
	mux.Handle("/api/v1/files", filesHandler)
	mux.Handle("/api/v1/files/", filesHandler)
	mux.Handle("/api/v1/exports/devices.xlsx", apihttp.NewExportDevicesXLSXHandler(db))
	mux.Handle("/api/v1/exports/devices.csv", apihttp.NewExportDevicesCSVHandler(db))
	mux.Handle("/api/v1/uploads", apihttp.NewUploadHandler(processor, auditRepo, pipelineCfg.InboxDir, pipelineCfg.UploadMaxMB))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s inbox=%s", cfg.HTTPAddr, pipelineCfg.InboxDir)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL         string
	HTTPAddr            string
	JWTSecret           string
	AlertWebhookURL     string
	AlertNotifyTemplate string
	AlertNotifyCooldown time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:         getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:           getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		AlertWebhookURL:     getenvDefault("ALERT_WEBHOOK_URL", ""),
		AlertNotifyTemplate: getenvDefault("ALERT_NOTIFY_TEMPLATE", ""),
		AlertNotifyCooldown: getenvDuration("ALERT_NOTIFY_COOLDOWN", 15*time.Minute),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		duration := time.Since(start)
		metrics.ObserveHTTP(r.Method, r.URL.Path, resp.status, duration)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, duration)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
