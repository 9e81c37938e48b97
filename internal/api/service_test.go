package api

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budget-ledger-go/internal/database"
	"budget-ledger-go/internal/jobs"
	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func setupLedgerService(t *testing.T) (*LedgerService, func()) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "api.db"),
		MaxOpenConns: 2,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	service := NewLedgerService(db, time.UTC)
	service.now = func() time.Time { return testNow }
	return service, db.Close
}

func resolveUser(t *testing.T, service *LedgerService, externalId string) *models.User {
	t.Helper()
	user, err := service.ResolveUser(context.Background(), models.Identity{
		ExternalId: externalId,
		Email:      externalId + "@example.com",
		Name:       externalId,
	})
	if err != nil {
		t.Fatalf("ResolveUser failed: %v", err)
	}
	return user
}

func TestResolveUser_RequiresSubject(t *testing.T) {
	service, cleanup := setupLedgerService(t)
	defer cleanup()

	_, err := service.ResolveUser(context.Background(), models.Identity{Email: "x@example.com"})
	if !errors.Is(err, store.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestTransactionFlow(t *testing.T) {
	service, cleanup := setupLedgerService(t)
	defer cleanup()

	ctx := context.Background()
	user := resolveUser(t, service, "alice")

	account, err := service.CreateAccount(ctx, user.Id, models.CreateAccountRequest{
		Name:           "Everyday",
		Type:           "current",
		InitialBalance: decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if !account.IsDefault {
		t.Errorf("Expected first account to be default")
	}

	created, err := service.CreateTransaction(ctx, user.Id, models.TransactionInput{
		AccountId: account.Id,
		Type:      "expense",
		Amount:    decimal.NewFromInt(50),
		Category:  " Groceries ",
	})
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if !created.NewBalance.Equal(decimal.NewFromInt(450)) {
		t.Errorf("Expected balance 450, got %s", created.NewBalance.String())
	}
	if created.Transaction.Category != "groceries" {
		t.Errorf("Expected category groceries, got %s", created.Transaction.Category)
	}
	if !created.Transaction.Date.Equal(testNow) {
		t.Errorf("Expected missing date to default to now, got %s", created.Transaction.Date)
	}

	updated, err := service.UpdateTransaction(ctx, user.Id, created.Transaction.Id, models.TransactionInput{
		AccountId: account.Id,
		Type:      models.TransactionTypeIncome,
		Amount:    decimal.NewFromInt(50),
		Date:      testNow,
	})
	if err != nil {
		t.Fatalf("UpdateTransaction failed: %v", err)
	}
	if !updated.NewBalance.Equal(decimal.NewFromInt(550)) {
		t.Errorf("Expected balance 550, got %s", updated.NewBalance.String())
	}

	history, err := service.GetTransactionHistory(ctx, user.Id, account.Id, 0, -1)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("Expected 2 transactions including the opening balance, got %d", len(history))
	}
}

func TestCreateTransaction_Recurring(t *testing.T) {
	service, cleanup := setupLedgerService(t)
	defer cleanup()

	ctx := context.Background()
	user := resolveUser(t, service, "alice")
	account, err := service.CreateAccount(ctx, user.Id, models.CreateAccountRequest{Name: "Main", Type: models.AccountTypeCurrent})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	date := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	result, err := service.CreateTransaction(ctx, user.Id, models.TransactionInput{
		AccountId:         account.Id,
		Type:              models.TransactionTypeExpense,
		Amount:            decimal.NewFromInt(900),
		Date:              date,
		Category:          "housing",
		IsRecurring:       true,
		RecurringInterval: "monthly",
	})
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	expected := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)
	if result.Transaction.NextRecurringDate == nil || !result.Transaction.NextRecurringDate.Equal(expected) {
		t.Errorf("Expected next date %s, got %v", expected, result.Transaction.NextRecurringDate)
	}

	_, err = service.CreateTransaction(ctx, user.Id, models.TransactionInput{
		AccountId:         account.Id,
		Type:              models.TransactionTypeExpense,
		Amount:            decimal.NewFromInt(1),
		IsRecurring:       true,
		RecurringInterval: "FORTNIGHTLY",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation for unknown interval, got %v", err)
	}
}

func TestUpdateTransaction_KeepsMaterializedSchedule(t *testing.T) {
	service, cleanup := setupLedgerService(t)
	defer cleanup()

	ctx := context.Background()
	user := resolveUser(t, service, "alice")
	account, err := service.CreateAccount(ctx, user.Id, models.CreateAccountRequest{
		Name:           "Main",
		Type:           models.AccountTypeCurrent,
		InitialBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	input := models.TransactionInput{
		AccountId:         account.Id,
		Type:              models.TransactionTypeExpense,
		Amount:            decimal.NewFromInt(100),
		Date:              time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Description:       "gym",
		Category:          "health",
		IsRecurring:       true,
		RecurringInterval: models.IntervalMonthly,
	}
	created, err := service.CreateTransaction(ctx, user.Id, input)
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	runner := jobs.NewRecurringRunner(jobs.RecurringRunnerConfig{Store: service.store, MaxRetries: 3})
	summary, err := runner.Process(ctx, testNow)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if summary.Created != 1 {
		t.Fatalf("Expected 1 materialized transaction, got %d", summary.Created)
	}

	input.Description = "gym membership"
	updated, err := service.UpdateTransaction(ctx, user.Id, created.Transaction.Id, input)
	if err != nil {
		t.Fatalf("UpdateTransaction failed: %v", err)
	}
	expected := time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC)
	if updated.Transaction.NextRecurringDate == nil || !updated.Transaction.NextRecurringDate.Equal(expected) {
		t.Errorf("Expected next date %s, got %v", expected, updated.Transaction.NextRecurringDate)
	}

	summary, err = runner.Process(ctx, testNow)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if summary.Created != 0 {
		t.Errorf("Expected no duplicate period after the edit, got %d created", summary.Created)
	}

	accounts, err := service.ListAccounts(ctx, user.Id)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 1 || !accounts[0].Balance.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Expected balance 800, got %+v", accounts)
	}
}

func TestForeignAccountIsNotFound(t *testing.T) {
	service, cleanup := setupLedgerService(t)
	defer cleanup()

	ctx := context.Background()
	owner := resolveUser(t, service, "owner")
	intruder := resolveUser(t, service, "intruder")
	account, err := service.CreateAccount(ctx, owner.Id, models.CreateAccountRequest{Name: "Main", Type: models.AccountTypeCurrent})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	_, err = service.CreateTransaction(ctx, intruder.Id, models.TransactionInput{
		AccountId: account.Id,
		Type:      models.TransactionTypeExpense,
		Amount:    decimal.NewFromInt(10),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if _, err := service.GetTransactionHistory(ctx, intruder.Id, account.Id, 10, 0); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for history, got %v", err)
	}
	if err := service.SetDefaultAccount(ctx, intruder.Id, account.Id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for default, got %v", err)
	}
}

func TestBudgetProgress(t *testing.T) {
	service, cleanup := setupLedgerService(t)
	defer cleanup()

	ctx := context.Background()
	user := resolveUser(t, service, "alice")

	progress, err := service.GetBudget(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetBudget failed: %v", err)
	}
	if progress.Budget != nil || progress.AccountId != "" {
		t.Errorf("Expected empty progress, got %+v", progress)
	}

	account, err := service.CreateAccount(ctx, user.Id, models.CreateAccountRequest{Name: "Main", Type: models.AccountTypeCurrent})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if _, err := service.CreateTransaction(ctx, user.Id, models.TransactionInput{
		AccountId: account.Id,
		Type:      models.TransactionTypeExpense,
		Amount:    decimal.NewFromInt(250),
		Date:      testNow,
		Category:  "shopping",
	}); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	progress, err = service.UpdateBudget(ctx, user.Id, models.BudgetInput{Amount: decimal.NewFromInt(1000)})
	if err != nil {
		t.Fatalf("UpdateBudget failed: %v", err)
	}
	if progress.Budget == nil || !progress.Budget.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected budget 1000, got %v", progress.Budget)
	}
	if !progress.Spent.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Expected spent 250, got %s", progress.Spent.String())
	}
	if !progress.PercentUsed.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected 25 percent used, got %s", progress.PercentUsed.String())
	}
}
