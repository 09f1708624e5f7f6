// cmd/pipeline-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclient "github.com/talentflow/intake-pipeline/internal/common/aws"
	"github.com/talentflow/intake-pipeline/internal/common/config"
	"github.com/talentflow/intake-pipeline/internal/common/database"
	"github.com/talentflow/intake-pipeline/internal/common/genai"
	"github.com/talentflow/intake-pipeline/internal/common/google"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
	"github.com/talentflow/intake-pipeline/internal/common/metrics"
	"github.com/talentflow/intake-pipeline/internal/common/retry"
	"github.com/talentflow/intake-pipeline/internal/notify"
	"github.com/talentflow/intake-pipeline/internal/pipeline/attachments"
	"github.com/talentflow/intake-pipeline/internal/pipeline/extraction"
	"github.com/talentflow/intake-pipeline/internal/pipeline/parser"
	"github.com/talentflow/intake-pipeline/internal/pipeline/screener"
	"github.com/talentflow/intake-pipeline/internal/pipeline/watcher"
	"github.com/talentflow/intake-pipeline/internal/storage"
	"github.com/talentflow/intake-pipeline/internal/store"
)

// infraPolicy is the startup retry policy: any error is worth another try
// while dependencies come up.
func infraPolicy(attempts int) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = attempts
	p.Classify = retry.Always
	return p
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pipeline manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retry.Do(ctx, "PostgreSQL connection", func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, infraPolicy(15), log)
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	candidateStore := store.NewCandidateStore(pg.DB, log)
	if err := candidateStore.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retry.Do(ctx, "Redis connection", func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, infraPolicy(10), log)
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Blob storage ---
	var blobs storage.BlobStore
	switch cfg.Storage.Backend {
	case "s3":
		s3, err := awsclient.NewS3Client(ctx, cfg.Storage.S3Region, cfg.Storage.S3Bucket)
		if err != nil {
			zapLog.Fatal("s3 client failed", zap.Error(err))
		}
		blobs = storage.NewS3Store(s3)
		zapLog.Info("Resume storage: S3", zap.String("bucket", cfg.Storage.S3Bucket))
	default:
		local, err := storage.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			zapLog.Fatal("local storage failed", zap.Error(err))
		}
		blobs = local
		zapLog.Info("Resume storage: local directory", zap.String("dir", cfg.Storage.LocalDir))
	}

	// --- Gemini client ---
	aiClient, err := genai.NewGeminiClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		zapLog.Fatal("gemini client failed", zap.Error(err))
	}
	defer aiClient.Close()
	zapLog.Info("Gemini client initialized", zap.String("model", cfg.AI.Model))

	// --- Outbound email ---
	var emailSender notify.EmailSender
	if cfg.Notifications.Email.Enabled {
		sesClient, err := awsclient.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		emailSender = notify.NewSESEmailSender(sesClient, cfg.Notifications.Email.FromEmail, cfg.Notifications.Email.ReplyTo)
		zapLog.Info("SES email sender initialized", zap.String("from", cfg.Notifications.Email.FromEmail))
	} else {
		emailSender = notify.NopEmailSender{}
		zapLog.Info("Email notifications disabled")
	}

	// --- Google Calendar (optional) ---
	var calendarSvc google.CalendarService
	if cfg.Calendar.Enabled {
		calendarSvc, err = google.NewCalendarClient(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID)
		if err != nil {
			zapLog.Fatal("calendar client failed", zap.Error(err))
		}
		zapLog.Info("Google Calendar client initialized", zap.String("calendarId", cfg.Calendar.CalendarID))
	} else {
		zapLog.Info("Google Calendar disabled, invites will be email-only")
	}

	counters := metrics.NewCounterStore()

	dispatcher := notify.NewDispatcher(
		candidateStore, emailSender, calendarSvc, counters,
		cfg.Notifications, cfg.Calendar, log,
	)

	// --- Pipeline stages ---
	jobDescription, err := os.ReadFile(cfg.AI.JobDescriptionPath)
	if err != nil {
		zapLog.Fatal("job description unreadable", zap.Error(err), zap.String("path", cfg.AI.JobDescriptionPath))
	}

	resumeParser, err := parser.New(aiClient, cfg.AI.MaxParseAttempts, log)
	if err != nil {
		zapLog.Fatal("parser init failed", zap.Error(err))
	}
	fitScreener := screener.New(aiClient, string(jobDescription), log)
	extractor := extraction.NewEngine(cfg.Extraction, log)

	// --- Mail watcher ---
	var mailWatcher *watcher.Watcher
	if cfg.Mailbox.Enabled {
		gmailClient, err := google.NewGmailClient(ctx, cfg.Mailbox.CredentialsFile)
		if err != nil {
			zapLog.Fatal("gmail client failed", zap.Error(err))
		}

		resolver := attachments.NewResolver(gmailClient, blobs, cfg.Mailbox.AttachmentLimit, log)
		mailWatcher = watcher.New(watcher.Deps{
			Mailbox:           gmailClient,
			Dedupe:            redis,
			Store:             candidateStore,
			Resolver:          resolver,
			Extractor:         extractor,
			Parser:            resumeParser,
			Screener:          fitScreener,
			Blobs:             blobs,
			Acks:              dispatcher,
			Counters:          counters,
			Logger:            log,
			JobDescriptionRef: cfg.AI.JobDescriptionPath,
		}, cfg.Mailbox, cfg.Pipeline)

		go mailWatcher.Run(ctx)
	} else {
		zapLog.Info("Mail processing disabled, watcher not started")
	}

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	if mailWatcher != nil {
		// blocks until the in-flight poll cycle completes
		mailWatcher.Stop()
	}

	zapLog.Info("Pipeline manager stopped gracefully")
}
