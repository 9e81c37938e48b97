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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

// maxWriteAttempts bounds the optimistic-retry loop on account balance writes
const maxWriteAttempts = 3

type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	busyTimeout := cfg.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	// _txlock=immediate takes the write lock at BEGIN so balance read-modify-write
	// sequences of different requests cannot interleave.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_foreign_keys=1&_txlock=immediate&_busy_timeout=%d",
		cfg.Path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db, now: time.Now}
	if err := service.initSchema(ctx, cfg.SeedDemoData); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) initSchema(ctx context.Context, seedDemoData bool) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	if !seedDemoData {
		zap.L().Info("Skipping demo data creation (SEED_DEMO_DATA=false)")
		return nil
	}
	return s.seedDemoData(ctx)
}

// seedDemoData creates one demo user with a default account and a budget
func (s *Service) seedDemoData(ctx context.Context) error {
	user, err := s.EnsureUser(ctx, models.Identity{
		ExternalId: "demo-user",
		Email:      "demo@example.com",
		Name:       "Demo User",
	})
	if err != nil {
		return fmt.Errorf("failed to seed demo user: %w", err)
	}

	accounts, err := s.ListAccounts(ctx, user.Id)
	if err != nil {
		return err
	}
	if len(accounts) > 0 {
		zap.L().Info("Demo data already present", zap.String("user_id", user.Id))
		return nil
	}

	account, err := s.CreateAccount(ctx, store.CreateAccountParams{
		UserId:         user.Id,
		Name:           "Everyday",
		Type:           models.AccountTypeCurrent,
		InitialBalance: decimal.NewFromInt(2500),
		IsDefault:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to seed demo account: %w", err)
	}

	if _, err := s.UpsertBudget(ctx, user.Id, decimal.NewFromInt(1500)); err != nil {
		return fmt.Errorf("failed to seed demo budget: %w", err)
	}

	zap.L().Info("Demo data created", zap.String("user_id", user.Id), zap.String("account_id", account.Id))
	return nil
}

// withRetry re-runs fn while it fails with ErrConcurrentModification
func withRetry[T any](ctx context.Context, operation string, fn func() (T, error)) (T, error) {
	var zero T
	var err error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		var result T
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, store.ErrConcurrentModification) {
			return zero, err
		}

		zap.L().Warn("Concurrent balance modification, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return zero, err
}

// rollback is deferred after BeginTx; it is a no-op once the tx has committed
func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		zap.L().Warn("Failed to roll back transaction", zap.Error(err))
	}
}

// lockAccount loads an account inside tx and checks it belongs to userId
func lockAccount(ctx context.Context, tx *sql.Tx, userId, accountId string) (*models.Account, error) {
	account, err := scanAccount(tx.QueryRowContext(ctx, queryGetAccount, accountId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", store.ErrNotFound, accountId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account.UserId != userId {
		return nil, fmt.Errorf("%w: account %s", store.ErrForbidden, accountId)
	}
	return account, nil
}

// writeBalance stores newBalance if the account version is unchanged
func writeBalance(ctx context.Context, tx *sql.Tx, account *models.Account, newBalance decimal.Decimal, now time.Time) error {
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, newBalance.String(), now, account.Id, account.Version)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("balance update failed for account %s - %w", account.Id, store.ErrConcurrentModification)
	}

	account.Balance = newBalance
	account.Version++
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var balanceStr string
	err := row.Scan(&account.Id, &account.UserId, &account.Name, &account.Type, &balanceStr,
		&account.IsDefault, &account.Version, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	account.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	return &account, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var amountStr string
	var interval sql.NullString
	var nextDate, lastProcessed sql.NullTime

	err := row.Scan(&tx.Id, &tx.UserId, &tx.AccountId, &tx.Type, &amountStr, &tx.Date,
		&tx.Description, &tx.Category, &tx.IsRecurring, &interval, &nextDate, &lastProcessed,
		&tx.ParentId, &tx.Status, &tx.FailureReason, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	if interval.Valid {
		tx.RecurringInterval = models.RecurringInterval(interval.String)
	}
	if nextDate.Valid {
		t := nextDate.Time
		tx.NextRecurringDate = &t
	}
	if lastProcessed.Valid {
		t := lastProcessed.Time
		tx.LastProcessed = &t
	}
	return &tx, nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
