package common

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"budget-ledger-go/internal/ai"
	"budget-ledger-go/internal/api"
	"budget-ledger-go/internal/auth"
	"budget-ledger-go/internal/database"
	"budget-ledger-go/internal/jobs"
	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/notify"
	"budget-ledger-go/internal/receipt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Ledger    *api.LedgerService
	Mailer    notify.Mailer
	Generator ai.Generator // nil when no API key is configured
	Receipts  *receipt.Adapter
	Verifier  auth.Verifier
	Limiter   *auth.RateLimiter
	Location  *time.Location
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the store and wires every collaborator the server
// and job binaries need.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	loc, err := time.LoadLocation(cfg.Jobs.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Jobs.Timezone, err)
	}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	mailer, err := notify.NewMailer(cfg.Email)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	var generator ai.Generator
	if cfg.AI.APIKey == "" {
		zap.L().Warn("GEMINI_API_KEY not set, receipt scanning and report insights are disabled")
	} else {
		zap.L().Info("Initializing AI service", zap.String("model", cfg.AI.Model))
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			dbService.Close()
			return nil, err
		}
		generator = aiService
	}

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	services := &Services{
		DbService: dbService,
		Ledger:    api.NewLedgerService(dbService, loc),
		Mailer:    mailer,
		Generator: generator,
		Verifier:  verifier,
		Limiter:   auth.NewRateLimiter(cfg.RateLimit),
		Location:  loc,
	}
	if generator != nil {
		services.Receipts = receipt.NewAdapter(generator)
	}

	zap.L().Info("Services initialized",
		zap.String("database", cfg.Database.Path),
		zap.String("timezone", loc.String()),
		zap.Bool("ai_enabled", generator != nil))
	return services, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for maintenance tools like balance reconciliation
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// BuildJobs returns the scheduled jobs keyed by name
func (cs *Services) BuildJobs(cfg models.JobsConfig) map[string]jobs.Job {
	return map[string]jobs.Job{
		jobs.JobRecurring: jobs.NewRecurringRunner(jobs.RecurringRunnerConfig{
			Store:              cs.DbService,
			MaxRetries:         cfg.MaxRetries,
			RetryBackoff:       cfg.RetryBackoff,
			UserItemsPerMinute: cfg.UserItemsPerMinute,
		}),
		jobs.JobBudgetAlerts: jobs.NewBudgetMonitor(jobs.BudgetMonitorConfig{
			Store:        cs.DbService,
			Mailer:       cs.Mailer,
			Threshold:    cfg.AlertThreshold,
			Location:     cs.Location,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}),
		jobs.JobMonthlyReports: jobs.NewReportGenerator(jobs.ReportGeneratorConfig{
			Store:        cs.DbService,
			Mailer:       cs.Mailer,
			Generator:    cs.Generator,
			Location:     cs.Location,
			Concurrency:  cfg.ReportConcurrency,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}),
	}
}

// BuildSchedules pairs each enabled job with its interval
func (cs *Services) BuildSchedules(cfg models.JobsConfig, settings map[string]ScheduleSetting) []jobs.Schedule {
	all := cs.BuildJobs(cfg)

	var schedules []jobs.Schedule
	for _, name := range knownJobs {
		setting := settings[name]
		if !setting.Enabled {
			zap.L().Info("Job disabled", zap.String("job", name))
			continue
		}
		schedules = append(schedules, jobs.Schedule{Job: all[name], Interval: setting.Interval})
	}
	return schedules
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
