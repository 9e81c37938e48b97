package jobs

import (
	"context"
	"time"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/notify"
	"budget-ledger-go/internal/recurrence"
	"budget-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BudgetMonitorConfig struct {
	Store        store.LedgerStore
	Mailer       notify.Mailer
	Threshold    float64
	Location     *time.Location
	MaxRetries   int
	RetryBackoff time.Duration
}

// BudgetMonitor sends at most one alert per budget per calendar month once
// spend on the default account reaches the threshold.
type BudgetMonitor struct {
	store     store.LedgerStore
	mailer    notify.Mailer
	threshold decimal.Decimal
	loc       *time.Location
	retry     retryPolicy
	now       func() time.Time
}

type BudgetSummary struct {
	Checked int
	Alerted int
	Failed  int
}

func NewBudgetMonitor(cfg BudgetMonitorConfig) *BudgetMonitor {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.80
	}
	return &BudgetMonitor{
		store:     cfg.Store,
		mailer:    cfg.Mailer,
		threshold: decimal.NewFromFloat(threshold),
		loc:       loc,
		retry:     newRetryPolicy(cfg.MaxRetries, cfg.RetryBackoff),
		now:       time.Now,
	}
}

func (m *BudgetMonitor) Name() string { return JobBudgetAlerts }

func (m *BudgetMonitor) Run(ctx context.Context) error {
	_, err := m.Process(ctx, m.now().UTC())
	return err
}

func (m *BudgetMonitor) Process(ctx context.Context, now time.Time) (BudgetSummary, error) {
	targets, err := m.store.ListBudgetTargets(ctx)
	if err != nil {
		return BudgetSummary{}, err
	}

	monthStart, monthEnd := recurrence.MonthBounds(now, m.loc)
	var summary BudgetSummary
	for _, target := range targets {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Checked++

		sent, err := m.checkBudget(ctx, target, now, monthStart, monthEnd)
		if err != nil {
			summary.Failed++
			zap.L().Error("Budget alert failed",
				zap.String("user_id", target.Budget.UserId),
				zap.String("budget_id", target.Budget.Id),
				zap.Error(err))
			continue
		}
		if sent {
			summary.Alerted++
		}
	}

	zap.L().Info("Budget alert run complete",
		zap.Int("checked", summary.Checked),
		zap.Int("alerted", summary.Alerted),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (m *BudgetMonitor) checkBudget(ctx context.Context, target models.BudgetTarget, now, monthStart, monthEnd time.Time) (bool, error) {
	if !target.Budget.Amount.IsPositive() {
		return false, nil
	}
	if target.Budget.LastAlertSent != nil && !target.Budget.LastAlertSent.Before(monthStart) {
		return false, nil
	}

	spent, err := m.store.SumExpenses(ctx, target.DefaultAccountId, monthStart, monthEnd)
	if err != nil {
		return false, err
	}
	if spent.Div(target.Budget.Amount).LessThan(m.threshold) {
		return false, nil
	}

	claimed, err := m.store.ClaimBudgetAlert(ctx, target.Budget.Id, now, monthStart)
	if err != nil || !claimed {
		return false, err
	}

	accountName := ""
	if account, err := m.store.GetAccount(ctx, target.Budget.UserId, target.DefaultAccountId); err == nil {
		accountName = account.Name
	}

	alert := models.BudgetAlert{
		UserName:       target.UserName,
		PercentageUsed: spent.Div(target.Budget.Amount).Mul(decimal.NewFromInt(100)).Round(1),
		BudgetAmount:   target.Budget.Amount,
		TotalExpenses:  spent,
		Remaining:      target.Budget.Amount.Sub(spent),
		AccountName:    accountName,
	}
	msg := notify.Message{
		To:       target.UserEmail,
		Template: notify.TemplateBudgetAlert,
		Subject:  "Budget Alert for " + accountName,
		Data:     alert,
	}
	err = m.retry.do(ctx, "budget alert", zap.String("budget_id", target.Budget.Id), func() error {
		return m.mailer.Send(ctx, msg)
	})
	if err != nil {
		releaseCtx, cancel := releaseContext(ctx)
		defer cancel()
		if releaseErr := m.store.ReleaseBudgetAlert(releaseCtx, target.Budget.Id, now, target.Budget.LastAlertSent); releaseErr != nil {
			zap.L().Error("Failed to release budget alert claim", zap.String("budget_id", target.Budget.Id), zap.Error(releaseErr))
		}
		return false, err
	}

	zap.L().Info("Budget alert sent",
		zap.String("user_id", target.Budget.UserId),
		zap.String("percentage_used", alert.PercentageUsed.String()))
	return true, nil
}
