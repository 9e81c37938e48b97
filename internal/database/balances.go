package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"budget-ledger-go/internal/ledger"
	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// reconcile replays the transaction log of an account and compares it with the stored balance
func reconcile(ctx context.Context, q querier, accountId string) (*models.Account, *models.AccountReconciliation, error) {
	account, err := scanAccount(q.QueryRowContext(ctx, queryGetAccount, accountId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: account %s", store.ErrNotFound, accountId)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get account: %w", err)
	}

	rows, err := q.QueryContext(ctx, queryAccountLedger, accountId)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read account ledger: %w", err)
	}
	defer closeRows(rows)

	var entries []models.Transaction
	for rows.Next() {
		var entry models.Transaction
		var amountStr string
		if err := rows.Scan(&entry.Type, &amountStr); err != nil {
			return nil, nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return account, &models.AccountReconciliation{
		AccountId:         account.Id,
		UserId:            account.UserId,
		StoredBalance:     account.Balance,
		CalculatedBalance: ledger.Replay(entries),
		TransactionCount:  len(entries),
	}, nil
}

// ReconcileAccount verifies that the stored balance matches the sum of all transactions
func (s *Service) ReconcileAccount(ctx context.Context, accountId string) (*models.AccountReconciliation, error) {
	zap.L().Info("Reconciling balance", zap.String("account_id", accountId))

	_, result, err := reconcile(ctx, s.db, accountId)
	if err != nil {
		return nil, err
	}

	if !result.Consistent() {
		zap.L().Error("Balance reconciliation failed",
			zap.String("account_id", accountId),
			zap.String("stored_balance", result.StoredBalance.String()),
			zap.String("calculated_balance", result.CalculatedBalance.String()),
			zap.String("difference", result.Drift().String()))
		return result, nil
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("account_id", accountId),
		zap.String("balance", result.StoredBalance.String()),
		zap.Int("transactions", result.TransactionCount))
	return result, nil
}

// RepairAccountBalance overwrites a drifted balance with the replayed one.
// The returned reconciliation describes the state before the repair.
func (s *Service) RepairAccountBalance(ctx context.Context, accountId string) (*models.AccountReconciliation, error) {
	return withRetry(ctx, "repair_balance", func() (*models.AccountReconciliation, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer rollback(tx)

		account, result, err := reconcile(ctx, tx, accountId)
		if err != nil {
			return nil, err
		}
		if result.Consistent() {
			return result, nil
		}

		if err := writeBalance(ctx, tx, account, result.CalculatedBalance, s.now().UTC()); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		zap.L().Warn("Balance repaired",
			zap.String("account_id", accountId),
			zap.String("old_balance", result.StoredBalance.String()),
			zap.String("new_balance", result.CalculatedBalance.String()))
		return result, nil
	})
}
