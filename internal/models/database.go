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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeCurrent AccountType = "CURRENT"
	AccountTypeSavings AccountType = "SAVINGS"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

type RecurringInterval string

const (
	IntervalDaily   RecurringInterval = "DAILY"
	IntervalWeekly  RecurringInterval = "WEEKLY"
	IntervalMonthly RecurringInterval = "MONTHLY"
	IntervalYearly  RecurringInterval = "YEARLY"
)

// User is the identity anchor; created on first successful identity lookup
type User struct {
	Id               string    `db:"id"`
	ExternalId       string    `db:"external_id"`
	Email            string    `db:"email"`
	Name             string    `db:"name"`
	DefaultAccountId string    `db:"default_account_id"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// Account holds the cached balance (hot data). Balance is a materialized view
// over the account's transactions and must be re-derivable by replay.
type Account struct {
	Id        string          `db:"id"`
	UserId    string          `db:"user_id"`
	Name      string          `db:"name"`
	Type      AccountType     `db:"type"`
	Balance   decimal.Decimal `db:"balance"`
	IsDefault bool            `db:"is_default"`
	Version   int64           `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Transaction is one ledger entry. Amount is always a non-negative magnitude;
// the sign comes from Type.
type Transaction struct {
	Id                string            `db:"id"`
	UserId            string            `db:"user_id"`
	AccountId         string            `db:"account_id"`
	Type              TransactionType   `db:"type"`
	Amount            decimal.Decimal   `db:"amount"`
	Date              time.Time         `db:"date"`
	Description       string            `db:"description"`
	Category          string            `db:"category"`
	IsRecurring       bool              `db:"is_recurring"`
	RecurringInterval RecurringInterval `db:"recurring_interval"`
	NextRecurringDate *time.Time        `db:"next_recurring_date"`
	LastProcessed     *time.Time        `db:"last_processed"`
	ParentId          string            `db:"parent_id"`
	Status            TransactionStatus `db:"status"`
	FailureReason     string            `db:"failure_reason"`
	CreatedAt         time.Time         `db:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at"`
}

// Budget is the per-user monthly spending limit
type Budget struct {
	Id            string          `db:"id"`
	UserId        string          `db:"user_id"`
	Amount        decimal.Decimal `db:"amount"`
	LastAlertSent *time.Time      `db:"last_alert_sent"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// BudgetTarget joins a budget with its owner's default account for alert evaluation
type BudgetTarget struct {
	Budget           Budget
	UserName         string
	UserEmail        string
	DefaultAccountId string
}

// AccountReconciliation compares the cached balance with a full replay of the log
type AccountReconciliation struct {
	AccountId         string
	UserId            string
	StoredBalance     decimal.Decimal
	CalculatedBalance decimal.Decimal
	TransactionCount  int
}

// Drift returns stored minus calculated
func (r AccountReconciliation) Drift() decimal.Decimal {
	return r.StoredBalance.Sub(r.CalculatedBalance)
}

// Consistent reports whether the cached balance matches the replayed one
func (r AccountReconciliation) Consistent() bool {
	return r.StoredBalance.Equal(r.CalculatedBalance)
}
