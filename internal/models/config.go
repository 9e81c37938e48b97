package models

import "time"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Jobs      JobsConfig
	AI        AIConfig
	Email     EmailConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
	SeedDemoData    bool
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// JobsConfig holds scheduled job settings
type JobsConfig struct {
	RecurringInterval     time.Duration
	BudgetAlertInterval   time.Duration
	MonthlyReportInterval time.Duration
	AlertThreshold        float64
	MaxRetries            int
	RetryBackoff          time.Duration
	UserItemsPerMinute    int
	ReportConcurrency     int
	Timezone              string
	SchedulesFile         string
}

// AIConfig holds generative model settings
type AIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// EmailConfig holds outbound email provider settings
type EmailConfig struct {
	Endpoint string
	APIKey   string
	From     string
	Timeout  time.Duration
}

// AuthConfig holds identity provider settings
type AuthConfig struct {
	FirebaseProjectId string
	CredentialsFile   string
	Disabled          bool
}

// RateLimitConfig holds per-identity request limits
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
	BlockedIdentities []string
}
