package jobs

import (
	"context"
	"sync"
	"time"

	"budget-ledger-go/internal/ai"
	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/notify"
	"budget-ledger-go/internal/recurrence"
	"budget-ledger-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type ReportGeneratorConfig struct {
	Store            store.LedgerStore
	Mailer           notify.Mailer
	Generator        ai.Generator // optional
	Location         *time.Location
	Concurrency      int
	NarrativeTimeout time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
}

// ReportGenerator emails each user a summary of the previous calendar month.
// A report_runs marker per (user, month) keeps it to one send.
type ReportGenerator struct {
	store            store.LedgerStore
	mailer           notify.Mailer
	generator        ai.Generator
	loc              *time.Location
	concurrency      int
	narrativeTimeout time.Duration
	retry            retryPolicy
	now              func() time.Time
}

type ReportSummary struct {
	Users   int
	Sent    int
	Skipped int
	Failed  int
}

func NewReportGenerator(cfg ReportGeneratorConfig) *ReportGenerator {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	timeout := cfg.NarrativeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReportGenerator{
		store:            cfg.Store,
		mailer:           cfg.Mailer,
		generator:        cfg.Generator,
		loc:              loc,
		concurrency:      concurrency,
		narrativeTimeout: timeout,
		retry:            newRetryPolicy(cfg.MaxRetries, cfg.RetryBackoff),
		now:              time.Now,
	}
}

func (g *ReportGenerator) Name() string { return JobMonthlyReports }

func (g *ReportGenerator) Run(ctx context.Context) error {
	_, err := g.Process(ctx, g.now())
	return err
}

func (g *ReportGenerator) Process(ctx context.Context, now time.Time) (ReportSummary, error) {
	users, err := g.store.GetUsers(ctx)
	if err != nil {
		return ReportSummary{}, err
	}

	from, to := recurrence.PreviousMonthBounds(now, g.loc)
	period := from.Format("2006-01")

	var mu sync.Mutex
	summary := ReportSummary{Users: len(users)}
	record := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for _, user := range users {
		eg.Go(func() error {
			sent, err := g.reportUser(egctx, user, period, from, to)
			switch {
			case err != nil:
				record(&summary.Failed)
				zap.L().Error("Monthly report failed",
					zap.String("user_id", user.Id),
					zap.String("period", period),
					zap.Error(err))
			case sent:
				record(&summary.Sent)
			default:
				record(&summary.Skipped)
			}
			return nil
		})
	}
	_ = eg.Wait()

	zap.L().Info("Monthly report run complete",
		zap.String("period", period),
		zap.Int("users", summary.Users),
		zap.Int("sent", summary.Sent),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, ctx.Err()
}

func (g *ReportGenerator) reportUser(ctx context.Context, user models.User, period string, from, to time.Time) (bool, error) {
	claimed, err := g.store.ClaimReportRun(ctx, user.Id, period)
	if err != nil || !claimed {
		return false, err
	}

	aggregate, err := g.store.MonthlyAggregate(ctx, user.Id, from, to)
	if err != nil {
		g.release(ctx, user.Id, period)
		return false, err
	}

	report := models.MonthlyReport{
		UserName:   user.Name,
		MonthLabel: from.Format("January 2006"),
		Stats:      *aggregate,
		Net:        aggregate.Net(),
		Insights:   g.insights(ctx, *aggregate),
	}

	msg := notify.Message{
		To:       user.Email,
		Template: notify.TemplateMonthlyReport,
		Subject:  "Your Monthly Financial Report - " + report.MonthLabel,
		Data:     report,
	}
	err = g.retry.do(ctx, "monthly report", zap.String("user_id", user.Id), func() error {
		return g.mailer.Send(ctx, msg)
	})
	if err != nil {
		g.release(ctx, user.Id, period)
		return false, err
	}

	if err := g.store.CompleteReportRun(ctx, user.Id, period); err != nil {
		zap.L().Warn("Failed to mark report run complete", zap.String("user_id", user.Id), zap.Error(err))
	}
	return true, nil
}

// insights is best-effort: any failure yields a report without narrative
func (g *ReportGenerator) insights(ctx context.Context, aggregate models.MonthlyAggregate) []string {
	if g.generator == nil || aggregate.TransactionCount == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.narrativeTimeout)
	defer cancel()

	text, err := g.generator.GenerateText(ctx, ai.NarrativePrompt(aggregate))
	if err != nil {
		zap.L().Warn("Narrative generation failed, sending report without insights", zap.Error(err))
		return nil
	}
	return ai.ParseInsights(text)
}

// release still runs after ctx is cancelled
func (g *ReportGenerator) release(ctx context.Context, userId, period string) {
	releaseCtx, cancel := releaseContext(ctx)
	defer cancel()
	if err := g.store.ReleaseReportRun(releaseCtx, userId, period); err != nil {
		zap.L().Error("Failed to release report run", zap.String("user_id", userId), zap.Error(err))
	}
}
