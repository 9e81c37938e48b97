package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func setupTestService(t *testing.T) (*Service, func()) {
	t.Helper()

	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	service.now = func() time.Time { return testNow }

	return service, service.Close
}

// seedAccount creates a user with one default account holding balance
func seedAccount(t *testing.T, service *Service, externalId string, balance int64) (*models.User, *models.Account) {
	t.Helper()
	ctx := context.Background()

	user, err := service.EnsureUser(ctx, models.Identity{
		ExternalId: externalId,
		Email:      externalId + "@example.com",
		Name:       "User " + externalId,
	})
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}

	account, err := service.CreateAccount(ctx, store.CreateAccountParams{
		UserId:         user.Id,
		Name:           "Main",
		Type:           models.AccountTypeCurrent,
		InitialBalance: decimal.NewFromInt(balance),
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return user, account
}

func expenseParams(userId, accountId string, amount int64) store.TransactionParams {
	return store.TransactionParams{
		UserId:    userId,
		AccountId: accountId,
		Type:      models.TransactionTypeExpense,
		Amount:    decimal.NewFromInt(amount),
		Date:      testNow,
		Category:  "groceries",
	}
}

func assertConsistent(t *testing.T, service *Service, accountId string) {
	t.Helper()
	result, err := service.ReconcileAccount(context.Background(), accountId)
	if err != nil {
		t.Fatalf("ReconcileAccount failed: %v", err)
	}
	if !result.Consistent() {
		t.Errorf("Expected stored balance %s to equal replayed balance %s",
			result.StoredBalance.String(), result.CalculatedBalance.String())
	}
}

func TestNewService_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.DatabaseConfig
	}{
		{"empty path", models.DatabaseConfig{MaxOpenConns: 1, PingTimeout: time.Second}},
		{"no connections", models.DatabaseConfig{Path: "x.db", PingTimeout: time.Second}},
		{"negative idle", models.DatabaseConfig{Path: "x.db", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second}},
		{"no ping timeout", models.DatabaseConfig{Path: "x.db", MaxOpenConns: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(context.Background(), tt.cfg); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestNewService_SeedDemoData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.db")
	cfg := models.DatabaseConfig{
		Path:         path,
		MaxOpenConns: 2,
		PingTimeout:  5 * time.Second,
		SeedDemoData: true,
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		service, err := NewService(ctx, cfg)
		if err != nil {
			t.Fatalf("NewService failed: %v", err)
		}

		users, err := service.GetUsers(ctx)
		if err != nil {
			t.Fatalf("GetUsers failed: %v", err)
		}
		if len(users) != 1 {
			t.Fatalf("Expected 1 demo user, got %d", len(users))
		}

		accounts, err := service.ListAccounts(ctx, users[0].Id)
		if err != nil {
			t.Fatalf("ListAccounts failed: %v", err)
		}
		if len(accounts) != 1 {
			t.Fatalf("Expected 1 demo account, got %d", len(accounts))
		}
		if !accounts[0].Balance.Equal(decimal.NewFromInt(2500)) {
			t.Errorf("Expected demo balance 2500, got %s", accounts[0].Balance.String())
		}
		service.Close()
	}
}

func TestEnsureUser_Idempotent(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	identity := models.Identity{ExternalId: "firebase-1", Email: "a@example.com", Name: "Alice"}

	first, err := service.EnsureUser(ctx, identity)
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	second, err := service.EnsureUser(ctx, identity)
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}

	if first.Id != second.Id {
		t.Errorf("Expected same user id, got %s and %s", first.Id, second.Id)
	}

	fetched, err := service.GetUserById(ctx, first.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if fetched.Email != identity.Email {
		t.Errorf("Expected email %s, got %s", identity.Email, fetched.Email)
	}
}
