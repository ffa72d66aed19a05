package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"recon-cloud/internal/audit"
	"recon-cloud/internal/auth"
	"recon-cloud/internal/eventing"
	eventingrepo "recon-cloud/internal/eventing/infrastructure/postgres"
	"recon-cloud/internal/ledgeradapter"
	"recon-cloud/internal/notify"
	"recon-cloud/internal/observability/metrics"
	"recon-cloud/internal/reconciliation/adapters"
	"recon-cloud/internal/reconciliation/application"
	reconrepo "recon-cloud/internal/reconciliation/infrastructure/postgres"
	reconinterfaces "recon-cloud/internal/reconciliation/interfaces"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	appCfg, err := application.LoadConfig()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	baseBus := eventing.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(application.StatementImported{})
	registry.Register(application.MatchingCompleted{})
	registry.Register(application.ReconciliationConfirmed{})

	outboxStore := eventingrepo.NewOutboxStore(db)
	processedStore := eventingrepo.NewProcessedStore(db)
	dlqStore := eventingrepo.NewDLQStore(db)
	dispatcher := eventing.NewDispatcher(baseBus, outboxStore, registry, dlqStore)
	publisher := eventing.NewPublisher(outboxStore, dispatcher, cfg.TenantID, baseBus)

	ledgerClient, err := ledgeradapter.NewClient(appCfg.LedgerBaseURL, appCfg.LedgerToken, ledgeradapter.WithRequestTimeout(appCfg.RequestTimeout))
	if err != nil {
		logger.Fatalf("ledger client error: %v", err)
	}
	workflow, err := application.NewWorkflowService(adapters.NewLedgerAdapter(ledgerClient), publisher, application.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("workflow service error: %v", err)
	}

	resultRepo := reconrepo.NewResultRepository(db)

	archiveConsumer, err := reconinterfaces.NewArchiveConsumer(resultRepo, logger)
	if err != nil {
		logger.Fatalf("archive consumer error: %v", err)
	}
	eventing.Subscribe(baseBus, eventing.EventTypeOf[application.ReconciliationConfirmed](), "results.archive", archiveConsumer.HandleReconciliationConfirmed, processedStore)

	var notifier notify.Notifier = notify.Noop{}
	if appCfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(appCfg.WebhookURL)
	}
	notifyConsumer, err := reconinterfaces.NewNotifyConsumer(notifier, logger)
	if err != nil {
		logger.Fatalf("notify consumer error: %v", err)
	}
	eventing.Subscribe(baseBus, eventing.EventTypeOf[application.ReconciliationConfirmed](), "results.notify", notifyConsumer.HandleReconciliationConfirmed, processedStore)

	sessionHandler, err := reconinterfaces.NewSessionHandler(workflow, auditRepo, appCfg.MaxUploadBytes)
	if err != nil {
		logger.Fatalf("session handler error: %v", err)
	}
	resultHandler, err := reconinterfaces.NewResultHandler(resultRepo, auditRepo)
	if err != nil {
		logger.Fatalf("result handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/reconciliations", sessionHandler)
	mux.Handle("/api/v1/reconciliations/", sessionHandler)
	mux.Handle("/api/v1/results", resultHandler)
	mux.Handle("/api/v1/results/", resultHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	TenantID    string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		TenantID:    getenvDefault("TENANT_ID", "tenant-demo"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
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

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
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
