package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"budget-ledger-go/internal/ledger"
	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/recurrence"
	"budget-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func insertTransaction(ctx context.Context, tx *sql.Tx, t *models.Transaction) error {
	_, err := tx.ExecContext(ctx, queryInsertTransaction,
		t.Id, t.UserId, t.AccountId, string(t.Type), t.Amount.String(), t.Date.UTC(),
		t.Description, t.Category, t.IsRecurring, nullString(string(t.RecurringInterval)),
		nullTime(t.NextRecurringDate), nullTime(t.LastProcessed), t.ParentId,
		string(t.Status), t.FailureReason, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// loadOwnedTransaction reads a transaction inside tx. Transactions of other
// users are reported as not found.
func loadOwnedTransaction(ctx context.Context, tx *sql.Tx, userId, transactionId string) (*models.Transaction, error) {
	existing, err := scanTransaction(tx.QueryRowContext(ctx, queryGetTransaction, transactionId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", store.ErrNotFound, transactionId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if existing.UserId != userId {
		return nil, fmt.Errorf("%w: transaction %s", store.ErrNotFound, transactionId)
	}
	return existing, nil
}

// CreateTransaction inserts a transaction and applies its balance delta in one unit
func (s *Service) CreateTransaction(ctx context.Context, params store.TransactionParams) (*store.MutationResult, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	return withRetry(ctx, "create_transaction", func() (*store.MutationResult, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer rollback(tx)

		account, err := lockAccount(ctx, tx, params.UserId, params.AccountId)
		if err != nil {
			return nil, err
		}

		now := s.now().UTC()
		status := params.Status
		if status == "" {
			status = models.TransactionStatusCompleted
		}
		transaction := &models.Transaction{
			Id:                uuid.New().String(),
			UserId:            params.UserId,
			AccountId:         params.AccountId,
			Type:              params.Type,
			Amount:            params.Amount,
			Date:              params.Date.UTC(),
			Description:       params.Description,
			Category:          params.Category,
			IsRecurring:       params.IsRecurring,
			RecurringInterval: params.RecurringInterval,
			NextRecurringDate: params.NextRecurringDate,
			Status:            status,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := insertTransaction(ctx, tx, transaction); err != nil {
			return nil, err
		}

		oldBalance := account.Balance
		newBalance := ledger.ApplyCreate(oldBalance, params.Type, params.Amount)
		if err := writeBalance(ctx, tx, account, newBalance, now); err != nil {
			return nil, err
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		zap.L().Info("Transaction created",
			zap.String("transaction_id", transaction.Id),
			zap.String("user_id", params.UserId),
			zap.String("account_id", params.AccountId),
			zap.String("type", string(params.Type)),
			zap.String("amount", params.Amount.String()),
			zap.String("old_balance", oldBalance.String()),
			zap.String("new_balance", newBalance.String()))

		return &store.MutationResult{Transaction: transaction, NewBalance: newBalance}, nil
	})
}

// UpdateTransaction rewrites a transaction and applies the net balance change
// in one unit. Moving a transaction between accounts reverses it on the old
// account and applies it on the new one. Editing a FAILED recurring
// transaction is the manual correction that returns it to the due scan.
func (s *Service) UpdateTransaction(ctx context.Context, transactionId string, params store.TransactionParams) (*store.MutationResult, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	return withRetry(ctx, "update_transaction", func() (*store.MutationResult, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer rollback(tx)

		existing, err := loadOwnedTransaction(ctx, tx, params.UserId, transactionId)
		if err != nil {
			return nil, err
		}
		nextDate, err := carrySchedule(existing, params)
		if err != nil {
			return nil, err
		}

		now := s.now().UTC()
		var newBalance decimal.Decimal
		if existing.AccountId == params.AccountId {
			account, err := lockAccount(ctx, tx, params.UserId, existing.AccountId)
			if err != nil {
				return nil, err
			}
			newBalance = ledger.ApplyUpdate(account.Balance, existing.Type, existing.Amount, params.Type, params.Amount)
			if err := writeBalance(ctx, tx, account, newBalance, now); err != nil {
				return nil, err
			}
		} else {
			target, err := lockAccount(ctx, tx, params.UserId, params.AccountId)
			if err != nil {
				return nil, err
			}
			source, err := lockAccount(ctx, tx, params.UserId, existing.AccountId)
			if err != nil {
				return nil, err
			}
			if err := writeBalance(ctx, tx, source, ledger.ApplyDelete(source.Balance, existing.Type, existing.Amount), now); err != nil {
				return nil, err
			}
			newBalance = ledger.ApplyCreate(target.Balance, params.Type, params.Amount)
			if err := writeBalance(ctx, tx, target, newBalance, now); err != nil {
				return nil, err
			}
		}

		status := existing.Status
		failureReason := existing.FailureReason
		if params.Status != "" {
			status = params.Status
		}
		if status == models.TransactionStatusFailed {
			status = models.TransactionStatusCompleted
			failureReason = ""
		}

		_, err = tx.ExecContext(ctx, queryUpdateTransaction,
			params.AccountId, string(params.Type), params.Amount.String(), params.Date.UTC(),
			params.Description, params.Category, params.IsRecurring,
			nullString(string(params.RecurringInterval)), nullTime(nextDate),
			string(status), failureReason, now, transactionId)
		if err != nil {
			return nil, fmt.Errorf("failed to update transaction: %w", err)
		}

		updated, err := scanTransaction(tx.QueryRowContext(ctx, queryGetTransaction, transactionId))
		if err != nil {
			return nil, fmt.Errorf("failed to read back transaction: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		zap.L().Info("Transaction updated",
			zap.String("transaction_id", transactionId),
			zap.String("user_id", params.UserId),
			zap.String("old_amount", ledger.Signed(existing.Type, existing.Amount).String()),
			zap.String("new_amount", ledger.Signed(params.Type, params.Amount).String()),
			zap.String("new_balance", newBalance.String()))

		return &store.MutationResult{Transaction: updated, NewBalance: newBalance}, nil
	})
}

// DeleteTransaction removes a transaction and reverses its balance contribution in one unit
func (s *Service) DeleteTransaction(ctx context.Context, userId, transactionId string) (*store.MutationResult, error) {
	return withRetry(ctx, "delete_transaction", func() (*store.MutationResult, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer rollback(tx)

		existing, err := loadOwnedTransaction(ctx, tx, userId, transactionId)
		if err != nil {
			return nil, err
		}

		account, err := lockAccount(ctx, tx, userId, existing.AccountId)
		if err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, queryDeleteTransaction, transactionId); err != nil {
			return nil, fmt.Errorf("failed to delete transaction: %w", err)
		}

		newBalance := ledger.ApplyDelete(account.Balance, existing.Type, existing.Amount)
		if err := writeBalance(ctx, tx, account, newBalance, s.now().UTC()); err != nil {
			return nil, err
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		zap.L().Info("Transaction deleted",
			zap.String("transaction_id", transactionId),
			zap.String("user_id", userId),
			zap.String("new_balance", newBalance.String()))

		return &store.MutationResult{Transaction: existing, NewBalance: newBalance}, nil
	})
}

func (s *Service) GetTransaction(ctx context.Context, userId, transactionId string) (*models.Transaction, error) {
	transaction, err := scanTransaction(s.db.QueryRowContext(ctx, queryGetTransaction, transactionId))
	if errors.Is(err, sql.ErrNoRows) || (err == nil && transaction.UserId != userId) {
		return nil, fmt.Errorf("%w: transaction %s", store.ErrNotFound, transactionId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return transaction, nil
}

// ListTransactions returns a page of an account's transactions, newest first
func (s *Service) ListTransactions(ctx context.Context, userId, accountId string, limit, offset int) ([]models.Transaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("user_id", userId),
		zap.String("account_id", accountId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryListTransactions, userId, accountId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer closeRows(rows)

	var transactions []models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *transaction)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

// carrySchedule returns the next recurring date to store on update. An edit
// that leaves the date, interval and recurring flag alone keeps the advanced
// schedule. Any other edit of a materialized parent moves the next date past
// the last run, so no period is charged twice.
func carrySchedule(existing *models.Transaction, params store.TransactionParams) (*time.Time, error) {
	if !params.IsRecurring || !existing.IsRecurring {
		return params.NextRecurringDate, nil
	}

	unchanged := existing.RecurringInterval == params.RecurringInterval && existing.Date.Equal(params.Date)
	if unchanged && existing.NextRecurringDate != nil {
		return existing.NextRecurringDate, nil
	}

	if existing.LastProcessed == nil || params.NextRecurringDate.After(*existing.LastProcessed) {
		return params.NextRecurringDate, nil
	}
	next, err := recurrence.NextAfter(params.Date, params.RecurringInterval, *existing.LastProcessed)
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func validateParams(params store.TransactionParams) error {
	if params.UserId == "" || params.AccountId == "" {
		return fmt.Errorf("%w: user_id and account_id are required", store.ErrValidation)
	}
	if err := ledger.ValidateType(params.Type); err != nil {
		return err
	}
	if err := ledger.ValidateAmount(params.Amount); err != nil {
		return err
	}
	if params.Date.IsZero() {
		return fmt.Errorf("%w: date is required", store.ErrValidation)
	}
	if !models.IsValidCategory(params.Category) {
		return fmt.Errorf("%w: unsupported category %q", store.ErrValidation, params.Category)
	}
	if params.IsRecurring {
		if err := recurrence.ValidateInterval(params.RecurringInterval); err != nil {
			return err
		}
	}
	if params.IsRecurring != (params.NextRecurringDate != nil) {
		return fmt.Errorf("%w: next recurring date must be set exactly when the transaction is recurring", store.ErrValidation)
	}
	if params.NextRecurringDate != nil && !params.NextRecurringDate.After(params.Date) {
		return fmt.Errorf("%w: next recurring date must be after the transaction date", store.ErrValidation)
	}
	return nil
}
