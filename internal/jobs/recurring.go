package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/recurrence"
	"budget-ledger-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// userConcurrency bounds how many users' recurring sets are processed at once
const userConcurrency = 4

type RecurringRunnerConfig struct {
	Store              store.LedgerStore
	MaxRetries         int
	RetryBackoff       time.Duration
	UserItemsPerMinute int
}

// RecurringRunner materializes due recurring transactions
type RecurringRunner struct {
	store              store.LedgerStore
	retry              retryPolicy
	userItemsPerMinute int
	now                func() time.Time
}

type RecurringSummary struct {
	Due     int
	Created int
	Skipped int
	Failed  int
}

func NewRecurringRunner(cfg RecurringRunnerConfig) *RecurringRunner {
	return &RecurringRunner{
		store:              cfg.Store,
		retry:              newRetryPolicy(cfg.MaxRetries, cfg.RetryBackoff),
		userItemsPerMinute: cfg.UserItemsPerMinute,
		now:                time.Now,
	}
}

func (r *RecurringRunner) Name() string { return JobRecurring }

func (r *RecurringRunner) Run(ctx context.Context) error {
	_, err := r.Process(ctx, r.now().UTC())
	return err
}

// Process handles everything due at now. Users run in parallel; within a user
// items run oldest due first. Only a failure to list due items is returned.
func (r *RecurringRunner) Process(ctx context.Context, now time.Time) (RecurringSummary, error) {
	due, err := r.store.ListDueRecurring(ctx, now)
	if err != nil {
		return RecurringSummary{}, err
	}

	// ListDueRecurring orders by user then due date, so groups keep that order
	var order []string
	byUser := make(map[string][]models.Transaction)
	for _, tx := range due {
		if _, ok := byUser[tx.UserId]; !ok {
			order = append(order, tx.UserId)
		}
		byUser[tx.UserId] = append(byUser[tx.UserId], tx)
	}

	var mu sync.Mutex
	summary := RecurringSummary{Due: len(due)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(userConcurrency)
	for _, userId := range order {
		items := byUser[userId]
		g.Go(func() error {
			userSummary, err := r.processUser(gctx, now, items)
			mu.Lock()
			summary.Created += userSummary.Created
			summary.Skipped += userSummary.Skipped
			summary.Failed += userSummary.Failed
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	zap.L().Info("Recurring run complete",
		zap.Int("due", summary.Due),
		zap.Int("created", summary.Created),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (r *RecurringRunner) processUser(ctx context.Context, now time.Time, items []models.Transaction) (RecurringSummary, error) {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if r.userItemsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.userItemsPerMinute)), r.userItemsPerMinute)
	}

	var summary RecurringSummary
	for _, item := range items {
		if err := limiter.Wait(ctx); err != nil {
			return summary, err
		}

		switch err := r.processItem(ctx, now, item); {
		case err == nil:
			summary.Created++
		case errors.Is(err, store.ErrDuplicate):
			summary.Skipped++
		case ctx.Err() != nil:
			return summary, ctx.Err()
		default:
			summary.Failed++
			zap.L().Error("Recurring transaction failed",
				zap.String("transaction_id", item.Id),
				zap.String("user_id", item.UserId),
				zap.Error(err))
			if markErr := r.store.MarkRecurringFailed(ctx, item.Id, err.Error()); markErr != nil {
				zap.L().Error("Failed to mark recurring transaction FAILED",
					zap.String("transaction_id", item.Id),
					zap.Error(markErr))
			}
		}
	}
	return summary, nil
}

// processItem retries transient failures with linear backoff. The next date
// is stepped from the parent's own date so clamped month ends recover.
func (r *RecurringRunner) processItem(ctx context.Context, now time.Time, item models.Transaction) error {
	if item.NextRecurringDate == nil {
		return store.ErrDuplicate
	}
	nextDate, err := recurrence.NextAfter(item.Date, item.RecurringInterval, now)
	if err != nil {
		return err
	}

	params := store.MaterializeParams{
		Parent:      item,
		Now:         now,
		NextDate:    nextDate,
		PreviousDue: *item.NextRecurringDate,
	}

	return r.retry.do(ctx, "recurring transaction", zap.String("transaction_id", item.Id), func() error {
		_, err := r.store.MaterializeRecurring(ctx, params)
		return err
	})
}
