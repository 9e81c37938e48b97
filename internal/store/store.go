package store

import (
	"context"
	"errors"
	"time"

	"budget-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across the store, collaborators and the API layer.
var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("resource does not belong to caller")
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
	ErrRateLimited            = errors.New("rate limited, try again later")
	ErrBlocked                = errors.New("request blocked")
	ErrExtractionFailure      = errors.New("receipt extraction failed")
	ErrTransient              = errors.New("external service unavailable")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrDuplicate              = errors.New("duplicate")
)

// CreateAccountParams contains the parameters for opening an account.
type CreateAccountParams struct {
	UserId         string
	Name           string
	Type           models.AccountType
	InitialBalance decimal.Decimal
	IsDefault      bool
}

// TransactionParams contains the user-editable fields of a transaction.
type TransactionParams struct {
	UserId            string
	AccountId         string
	Type              models.TransactionType
	Amount            decimal.Decimal
	Date              time.Time
	Description       string
	Category          string
	IsRecurring       bool
	RecurringInterval models.RecurringInterval
	NextRecurringDate *time.Time
	Status            models.TransactionStatus
}

// MutationResult is the outcome of a balance-mutating write.
type MutationResult struct {
	Transaction *models.Transaction
	NewBalance  decimal.Decimal
}

// MaterializeParams describes one recurring instance to create from a due parent.
type MaterializeParams struct {
	Parent      models.Transaction
	Now         time.Time
	NextDate    time.Time
	PreviousDue time.Time
}

// LedgerStore defines the contract the relational backend must satisfy.
type LedgerStore interface {
	// --- Users ---
	EnsureUser(ctx context.Context, identity models.Identity) (*models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)

	// --- Accounts ---
	CreateAccount(ctx context.Context, params CreateAccountParams) (*models.Account, error)
	GetAccount(ctx context.Context, userId, accountId string) (*models.Account, error)
	ListAccounts(ctx context.Context, userId string) ([]models.Account, error)
	SetDefaultAccount(ctx context.Context, userId, accountId string) error

	// --- Transactions ---
	CreateTransaction(ctx context.Context, params TransactionParams) (*MutationResult, error)
	UpdateTransaction(ctx context.Context, transactionId string, params TransactionParams) (*MutationResult, error)
	DeleteTransaction(ctx context.Context, userId, transactionId string) (*MutationResult, error)
	GetTransaction(ctx context.Context, userId, transactionId string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userId, accountId string, limit, offset int) ([]models.Transaction, error)

	// --- Recurring ---
	ListDueRecurring(ctx context.Context, asOf time.Time) ([]models.Transaction, error)
	MaterializeRecurring(ctx context.Context, params MaterializeParams) (*MutationResult, error)
	MarkRecurringFailed(ctx context.Context, transactionId, reason string) error

	// --- Budgets ---
	UpsertBudget(ctx context.Context, userId string, amount decimal.Decimal) (*models.Budget, error)
	GetBudget(ctx context.Context, userId string) (*models.Budget, error)
	ListBudgetTargets(ctx context.Context) ([]models.BudgetTarget, error)
	SumExpenses(ctx context.Context, accountId string, from, to time.Time) (decimal.Decimal, error)
	ClaimBudgetAlert(ctx context.Context, budgetId string, now, monthStart time.Time) (bool, error)
	ReleaseBudgetAlert(ctx context.Context, budgetId string, claimedAt time.Time, previous *time.Time) error

	// --- Reports ---
	MonthlyAggregate(ctx context.Context, userId string, from, to time.Time) (*models.MonthlyAggregate, error)
	ClaimReportRun(ctx context.Context, userId, period string) (bool, error)
	CompleteReportRun(ctx context.Context, userId, period string) error
	ReleaseReportRun(ctx context.Context, userId, period string) error

	// --- Reconciliation ---
	ReconcileAccount(ctx context.Context, accountId string) (*models.AccountReconciliation, error)
	RepairAccountBalance(ctx context.Context, accountId string) (*models.AccountReconciliation, error)

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
