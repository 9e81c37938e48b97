package common

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budget-ledger-go/internal/database"
	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"go.uber.org/zap"
)

func TestInitializeUsers(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewService(ctx, models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "users.db"),
		MaxOpenConns: 2,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer db.Close()

	for _, name := range []string{"alice", "bob"} {
		if _, err := db.EnsureUser(ctx, models.Identity{ExternalId: name, Email: name + "@example.com", Name: name}); err != nil {
			t.Fatalf("EnsureUser failed: %v", err)
		}
	}

	logger := zap.NewNop()

	all, err := InitializeUsers(ctx, db, "", logger)
	if err != nil {
		t.Fatalf("InitializeUsers failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 users, got %d", len(all))
	}

	filtered, err := InitializeUsers(ctx, db, "BOB@example.com", logger)
	if err != nil {
		t.Fatalf("InitializeUsers failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Name != "bob" {
		t.Errorf("Expected only bob, got %+v", filtered)
	}

	if _, err := InitializeUsers(ctx, db, "carol@example.com", logger); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
