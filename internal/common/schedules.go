package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"budget-ledger-go/internal/jobs"
	"budget-ledger-go/internal/models"

	"gopkg.in/yaml.v2"
)

type JobSchedule struct {
	Name     string `yaml:"name"`
	Enabled  *bool  `yaml:"enabled"`
	Interval string `yaml:"interval"`
}

type SchedulesConfig struct {
	Jobs []JobSchedule `yaml:"jobs"`
}

// ScheduleSetting is the resolved schedule for one job
type ScheduleSetting struct {
	Enabled  bool
	Interval time.Duration
}

var knownJobs = []string{jobs.JobRecurring, jobs.JobBudgetAlerts, jobs.JobMonthlyReports}

// DefaultSchedules returns every job enabled at its configured interval
func DefaultSchedules(cfg models.JobsConfig) map[string]ScheduleSetting {
	return map[string]ScheduleSetting{
		jobs.JobRecurring:      {Enabled: true, Interval: cfg.RecurringInterval},
		jobs.JobBudgetAlerts:   {Enabled: true, Interval: cfg.BudgetAlertInterval},
		jobs.JobMonthlyReports: {Enabled: true, Interval: cfg.MonthlyReportInterval},
	}
}

// LoadSchedules applies the overrides in schedulesFile on top of the defaults.
// A missing file leaves the defaults untouched.
func LoadSchedules(schedulesFile string, cfg models.JobsConfig) (map[string]ScheduleSetting, error) {
	settings := DefaultSchedules(cfg)
	if schedulesFile == "" {
		return settings, nil
	}

	var schedulesPath string
	if filepath.IsAbs(schedulesFile) {
		schedulesPath = schedulesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		schedulesPath = filepath.Join(wd, schedulesFile)
	}

	data, err := os.ReadFile(schedulesPath)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", schedulesFile, err)
	}

	var config SchedulesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", schedulesFile, err)
	}

	for i, job := range config.Jobs {
		setting, ok := settings[job.Name]
		if !ok {
			return nil, fmt.Errorf("job at index %d has unknown name %q, expected one of %v", i, job.Name, knownJobs)
		}
		if job.Enabled != nil {
			setting.Enabled = *job.Enabled
		}
		if job.Interval != "" {
			interval, err := time.ParseDuration(job.Interval)
			if err != nil {
				return nil, fmt.Errorf("job %s has invalid interval: %w", job.Name, err)
			}
			if interval <= 0 {
				return nil, fmt.Errorf("job %s interval must be positive", job.Name)
			}
			setting.Interval = interval
		}
		settings[job.Name] = setting
	}

	return settings, nil
}
