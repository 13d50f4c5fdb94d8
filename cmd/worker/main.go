// Worker runs the background ledger jobs: periodic integrity verification and
// cold-storage archival. Both treat the ledger as read-only apart from the
// archived_at mark; neither ever deletes an entry. A detected violation opens
// a persistent alarm that halts all further appends until an operator clears
// it.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	logapi "go.opentelemetry.io/otel/log"

	"servicedesk-control-plane/internal/archive"
	"servicedesk-control-plane/internal/config"
	"servicedesk-control-plane/internal/db"
	"servicedesk-control-plane/internal/ledger"
	ledgerrepo "servicedesk-control-plane/internal/ledger/repository"
	"servicedesk-control-plane/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "servicedesk-worker", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = providers.Shutdown(shutdownCtx)
	}()
	alertLogger := providers.LoggerProvider.Logger("servicedesk-worker")

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	repo := ledgerrepo.NewPostgresRepository(pool)

	coldStore, err := archive.NewFileStore(cfg.ArchiveDir)
	if err != nil {
		log.Fatalf("archive: %v", err)
	}
	archiver := archive.New(repo, coldStore, cfg.ArchiveRetention())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	verifyTicker := time.NewTicker(cfg.VerifyEvery())
	defer verifyTicker.Stop()
	archiveTicker := time.NewTicker(cfg.ArchiveEvery())
	defer archiveTicker.Stop()

	log.Printf("worker: verifying every %s, archiving every %s (retention %d days)",
		cfg.VerifyEvery(), cfg.ArchiveEvery(), cfg.ArchiveAfterDays)

	// One verification pass at startup so a corrupted ledger is caught before
	// the first interval elapses.
	verify(ctx, repo, alertLogger)

	for {
		select {
		case <-ctx.Done():
			log.Println("worker: stopped")
			return
		case <-verifyTicker.C:
			verify(ctx, repo, alertLogger)
		case <-archiveTicker.C:
			n, err := archiver.Run(ctx)
			if err != nil {
				log.Printf("worker: archival pass: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("worker: archived %d entries", n)
			}
		}
	}
}

// verify runs one integrity walk. A mismatch opens a ledger alarm (halting
// appends) and emits an error-severity log record for the operator alerting
// path. Verification itself stays read-only and keeps running afterwards.
func verify(ctx context.Context, repo *ledgerrepo.PostgresRepository, alertLogger logapi.Logger) {
	res, err := ledger.Verify(ctx, repo)
	if err != nil {
		log.Printf("worker: verify: %v", err)
		return
	}
	if res.Valid {
		log.Printf("worker: ledger intact (%d entries)", res.Entries)
		return
	}

	seq := uint64(0)
	if res.CorruptedAt != nil {
		seq = *res.CorruptedAt
	}
	log.Printf("worker: LEDGER CORRUPTED at sequence %d: expected %s, stored %s", seq, res.Expected, res.Actual)

	open, err := repo.HasOpenAlarm(ctx)
	if err != nil {
		log.Printf("worker: alarm check: %v", err)
	}
	if !open {
		if err := repo.OpenAlarm(ctx, seq, res.Expected, res.Actual, time.Now().UTC()); err != nil {
			log.Printf("worker: open alarm: %v", err)
		}
	}

	var rec logapi.Record
	rec.SetTimestamp(time.Now().UTC())
	rec.SetSeverity(logapi.SeverityError)
	rec.SetBody(logapi.StringValue("audit ledger integrity violation"))
	rec.AddAttributes(
		logapi.Int64("corrupted_at", int64(seq)),
		logapi.String("expected_hash", res.Expected),
		logapi.String("stored_hash", res.Actual),
	)
	alertLogger.Emit(ctx, rec)
}
