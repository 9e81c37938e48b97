package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"budget-ledger-go/internal/common"
	"budget-ledger-go/internal/config"
	"budget-ledger-go/internal/jobs"

	"go.uber.org/zap"
)

// Runs a single job tick and exits. Intended for external schedulers.
func main() {
	jobFlag := flag.String("job", "", "Job to run: recurring, budget-alerts or monthly-reports")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	all := services.BuildJobs(cfg.Jobs)
	job, ok := all[strings.ToLower(*jobFlag)]
	if !ok {
		zap.L().Fatal("Unknown job",
			zap.String("job", *jobFlag),
			zap.Strings("available", []string{jobs.JobRecurring, jobs.JobBudgetAlerts, jobs.JobMonthlyReports}))
	}

	if err := jobs.RunJob(ctx, job); err != nil {
		services.Close()
		loggerCleanup()
		os.Exit(1)
	}
}
