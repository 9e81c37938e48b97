/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"budget-ledger-go/internal/models"
)

func Load() (*models.Config, error) {
	var (
		connMaxLifetime, connMaxIdleTime, pingTimeout, busyTimeout time.Duration
		readTimeout, writeTimeout                                  time.Duration
		recurringInterval, budgetInterval, reportInterval          time.Duration
		retryBackoff, aiTimeout, emailTimeout                      time.Duration
	)
	defaults := []struct {
		key    string
		target *time.Duration
		value  time.Duration
	}{
		{"DB_CONN_MAX_LIFETIME", &connMaxLifetime, 5 * time.Minute},
		{"DB_CONN_MAX_IDLE_TIME", &connMaxIdleTime, 30 * time.Second},
		{"DB_PING_TIMEOUT", &pingTimeout, 5 * time.Second},
		{"DB_BUSY_TIMEOUT", &busyTimeout, 5 * time.Second},
		{"SERVER_READ_TIMEOUT", &readTimeout, 15 * time.Second},
		{"SERVER_WRITE_TIMEOUT", &writeTimeout, 60 * time.Second},
		{"JOBS_RECURRING_INTERVAL", &recurringInterval, 24 * time.Hour},
		{"JOBS_BUDGET_ALERT_INTERVAL", &budgetInterval, 6 * time.Hour},
		{"JOBS_MONTHLY_REPORT_INTERVAL", &reportInterval, 24 * time.Hour},
		{"JOBS_RETRY_BACKOFF", &retryBackoff, time.Second},
		{"AI_TIMEOUT", &aiTimeout, 30 * time.Second},
		{"EMAIL_TIMEOUT", &emailTimeout, 10 * time.Second},
	}
	for _, d := range defaults {
		value, err := getEnvDuration(d.key, d.value)
		if err != nil {
			return nil, err
		}
		*d.target = value
	}

	alertThreshold, err := getEnvFloat("JOBS_ALERT_THRESHOLD", 0.80)
	if err != nil {
		return nil, err
	}
	if alertThreshold <= 0 || alertThreshold > 1 {
		return nil, fmt.Errorf("JOBS_ALERT_THRESHOLD must be in (0, 1], got %v", alertThreshold)
	}

	timezone := getEnvString("JOBS_TIMEZONE", "UTC")
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("invalid JOBS_TIMEZONE %q: %w", timezone, err)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "budget.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			BusyTimeout:     busyTimeout,
			SeedDemoData:    getEnvBool("SEED_DEMO_DATA", false),
		},
		Server: models.ServerConfig{
			Addr:         getEnvString("SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		Jobs: models.JobsConfig{
			RecurringInterval:     recurringInterval,
			BudgetAlertInterval:   budgetInterval,
			MonthlyReportInterval: reportInterval,
			AlertThreshold:        alertThreshold,
			MaxRetries:            getEnvInt("JOBS_MAX_RETRIES", 3),
			RetryBackoff:          retryBackoff,
			UserItemsPerMinute:    getEnvInt("JOBS_USER_ITEMS_PER_MINUTE", 10),
			ReportConcurrency:     getEnvInt("JOBS_REPORT_CONCURRENCY", 4),
			Timezone:              timezone,
			SchedulesFile:         getEnvString("SCHEDULES_FILE", "schedules.yaml"),
		},
		AI: models.AIConfig{
			APIKey:  getEnvString("GEMINI_API_KEY", ""),
			Model:   getEnvString("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout: aiTimeout,
		},
		Email: models.EmailConfig{
			Endpoint: getEnvString("EMAIL_ENDPOINT", ""),
			APIKey:   getEnvString("EMAIL_API_KEY", ""),
			From:     getEnvString("EMAIL_FROM", "Budget Ledger <noreply@example.com>"),
			Timeout:  emailTimeout,
		},
		Auth: models.AuthConfig{
			FirebaseProjectId: getEnvString("FIREBASE_PROJECT_ID", ""),
			CredentialsFile:   getEnvString("GOOGLE_APPLICATION_CREDENTIALS", ""),
			Disabled:          getEnvBool("AUTH_DISABLED", false),
		},
		RateLimit: models.RateLimitConfig{
			RequestsPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 10),
			BlockedIdentities: getEnvList("RATE_LIMIT_BLOCKED"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q (%w)", key, value, err)
		}
		return floatValue, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty entries
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
