package background

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"packloop/internal/caching"
	"packloop/internal/common"
	"packloop/internal/config"
	"packloop/internal/metrics"
	"packloop/internal/models"
	"packloop/internal/repositories"
	"packloop/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// JobScheduler runs the periodic maintenance work: the overdue checkout
// scan, the ledger reconciliation sweep, and the last-location cache
// refresh. The sweep detects drift and reports it; it never repairs.
type JobScheduler struct {
	scheduler    gocron.Scheduler
	loanSvc      services.LoanService
	ledgerSvc    services.LedgerService
	auditSvc     services.AuditLogsService
	accountRepo  repositories.AccountRepository
	movementRepo repositories.MovementRepository
	cacheSvc     caching.CacheService
	cfg          config.JobsConfig
	jobs         map[string]gocron.Job
	mu           sync.RWMutex
}

func NewJobScheduler(loanSvc services.LoanService, ledgerSvc services.LedgerService, auditSvc services.AuditLogsService,
	accountRepo repositories.AccountRepository, movementRepo repositories.MovementRepository,
	cacheSvc caching.CacheService, cfg config.JobsConfig) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:    scheduler,
		loanSvc:      loanSvc,
		ledgerSvc:    ledgerSvc,
		auditSvc:     auditSvc,
		accountRepo:  accountRepo,
		movementRepo: movementRepo,
		cacheSvc:     cacheSvc,
		cfg:          cfg,
		jobs:         make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js, nil
}

func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	overdueJob, err := js.scheduler.NewJob(
		gocron.DurationJob(time.Duration(js.cfg.OverdueScanMinutes)*time.Minute),
		gocron.NewTask(js.scanOverdueCheckouts, context.Background()),
		gocron.WithName("overdue-checkout-scan"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create overdue scan job: %v", err)
	} else {
		js.jobs["overdue-scan"] = overdueJob
	}

	reconcileJob, err := js.scheduler.NewJob(
		gocron.DurationJob(time.Duration(js.cfg.ReconcileMinutes)*time.Minute),
		gocron.NewTask(js.reconcileLedgers, context.Background()),
		gocron.WithName("ledger-reconciliation-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create reconciliation job: %v", err)
	} else {
		js.jobs["reconcile"] = reconcileJob
	}

	cacheJob, err := js.scheduler.NewJob(
		gocron.DurationJob(time.Duration(js.cfg.CacheRefreshMinutes)*time.Minute),
		gocron.NewTask(js.refreshLocationCache, context.Background()),
		gocron.WithName("last-location-cache-refresh"),
	)
	if err != nil {
		log.Printf("Failed to create cache refresh job: %v", err)
	} else {
		js.jobs["cache-refresh"] = cacheJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

// scanOverdueCheckouts recomputes the overdue set and publishes it to the
// gauge and the audit log.
func (js *JobScheduler) scanOverdueCheckouts(ctx context.Context) error {
	overdue, err := js.loanSvc.OverdueCheckouts(ctx, time.Time{})
	if err != nil {
		log.Printf("Overdue scan failed: %v", err)
		return err
	}

	metrics.OverdueCheckouts.Set(float64(len(overdue)))
	if len(overdue) > 0 {
		log.Printf("Overdue scan: %d open checkouts past due", len(overdue))
		ids := make([]string, 0, len(overdue))
		for _, oc := range overdue {
			ids = append(ids, oc.Checkout.ID.String())
		}
		if js.auditSvc != nil {
			_ = js.auditSvc.LogEvent(ctx, "checkout", "", "overdue_scan", models.JSONB{
				"count":        len(overdue),
				"checkout_ids": ids,
			})
		}
	}
	return nil
}

// reconcileLedgers compares every account's stored balance against its
// transaction history. Drift is counted, logged, and audited; the stored
// balance is left untouched for manual remediation.
func (js *JobScheduler) reconcileLedgers(ctx context.Context) error {
	accountIDs, err := js.accountRepo.ListAccountIDs(ctx)
	if err != nil {
		log.Printf("Reconciliation sweep failed to list accounts: %v", err)
		return err
	}

	semaphore := make(chan struct{}, 5)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var drifted int

	for _, accountID := range accountIDs {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			_, _, err := js.ledgerSvc.Reconcile(ctx, id)
			if err == nil {
				return
			}
			var corruption *common.LedgerCorruption
			if errors.As(err, &corruption) {
				mu.Lock()
				drifted++
				mu.Unlock()
				log.Printf("Reconciliation sweep: account %s drifted, stored %d vs ledger %d",
					id, corruption.BalanceCents, corruption.LedgerCents)
				if js.auditSvc != nil {
					_ = js.auditSvc.LogEvent(ctx, "deposit_account", id.String(), "ledger_drift_detected", models.JSONB{
						"balance_cents": corruption.BalanceCents,
						"ledger_cents":  corruption.LedgerCents,
					})
				}
				return
			}
			log.Printf("Reconciliation sweep: account %s check failed: %v", id, err)
		}(accountID)
	}

	wg.Wait()
	metrics.LedgerDriftAccounts.Set(float64(drifted))
	log.Printf("Reconciliation sweep completed: %d accounts checked, %d drifted", len(accountIDs), drifted)
	return nil
}

// refreshLocationCache rewarms the last-location cache from the view.
func (js *JobScheduler) refreshLocationCache(ctx context.Context) error {
	if js.cacheSvc == nil {
		return nil
	}

	lasts, err := js.movementRepo.AllLastLocations(ctx)
	if err != nil {
		log.Printf("Cache refresh failed: %v", err)
		return err
	}

	for _, last := range lasts {
		if err := js.cacheSvc.SetLastLocation(ctx, last, 2*time.Duration(js.cfg.CacheRefreshMinutes)*time.Minute); err != nil {
			log.Printf("Cache refresh: instance %s not cached: %v", last.InstanceID, err)
		}
	}
	log.Printf("Cache refresh completed: %d instances", len(lasts))
	return nil
}

// GetJobStatus returns the registered job names.
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return map[string]interface{}{
		"total_jobs": len(js.jobs),
		"jobs":       names,
	}
}
