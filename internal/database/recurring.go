package database

import (
	"context"
	"fmt"
	"time"

	"budget-ledger-go/internal/ledger"
	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/recurrence"
	"budget-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListDueRecurring returns recurring transactions due at asOf, excluding FAILED
// ones, grouped by user with the oldest due date first.
func (s *Service) ListDueRecurring(ctx context.Context, asOf time.Time) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, queryListDueRecurring, asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list due recurring transactions: %w", err)
	}
	defer closeRows(rows)

	var due []models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring transaction: %w", err)
		}
		due = append(due, *transaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring rows: %w", err)
	}
	return due, nil
}

// MaterializeRecurring creates the COMPLETED instance of a due parent, applies
// its balance delta and advances the parent's next date, all in one unit. If
// the parent is no longer due at PreviousDue the call returns ErrDuplicate and
// writes nothing.
func (s *Service) MaterializeRecurring(ctx context.Context, params store.MaterializeParams) (*store.MutationResult, error) {
	if !params.NextDate.After(params.PreviousDue) {
		return nil, fmt.Errorf("%w: next date %s must be after %s", store.ErrValidation, params.NextDate, params.PreviousDue)
	}

	return withRetry(ctx, "materialize_recurring", func() (*store.MutationResult, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer rollback(tx)

		parent, err := loadOwnedTransaction(ctx, tx, params.Parent.UserId, params.Parent.Id)
		if err != nil {
			return nil, err
		}
		if parent.Status == models.TransactionStatusFailed ||
			!recurrence.IsDue(*parent, params.Now) ||
			!parent.NextRecurringDate.Equal(params.PreviousDue) {
			return nil, fmt.Errorf("%w: recurring transaction %s already processed", store.ErrDuplicate, parent.Id)
		}

		account, err := lockAccount(ctx, tx, parent.UserId, parent.AccountId)
		if err != nil {
			return nil, err
		}

		now := params.Now.UTC()
		instance := &models.Transaction{
			Id:          uuid.New().String(),
			UserId:      parent.UserId,
			AccountId:   parent.AccountId,
			Type:        parent.Type,
			Amount:      parent.Amount,
			Date:        now,
			Description: parent.Description,
			Category:    parent.Category,
			ParentId:    parent.Id,
			Status:      models.TransactionStatusCompleted,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := insertTransaction(ctx, tx, instance); err != nil {
			return nil, err
		}

		newBalance := ledger.ApplyCreate(account.Balance, instance.Type, instance.Amount)
		if err := writeBalance(ctx, tx, account, newBalance, now); err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, queryAdvanceRecurring, params.NextDate.UTC(), now, now, parent.Id); err != nil {
			return nil, fmt.Errorf("failed to advance recurring transaction: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		zap.L().Info("Recurring transaction materialized",
			zap.String("parent_id", parent.Id),
			zap.String("transaction_id", instance.Id),
			zap.String("user_id", parent.UserId),
			zap.String("amount", ledger.Signed(instance.Type, instance.Amount).String()),
			zap.Time("next_recurring_date", params.NextDate),
			zap.String("new_balance", newBalance.String()))

		return &store.MutationResult{Transaction: instance, NewBalance: newBalance}, nil
	})
}

// MarkRecurringFailed takes a recurring transaction out of the due scan
func (s *Service) MarkRecurringFailed(ctx context.Context, transactionId, reason string) error {
	result, err := s.db.ExecContext(ctx, queryMarkRecurringFailed, reason, s.now().UTC(), transactionId)
	if err != nil {
		return fmt.Errorf("failed to mark recurring transaction failed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: transaction %s", store.ErrNotFound, transactionId)
	}

	zap.L().Warn("Recurring transaction marked FAILED",
		zap.String("transaction_id", transactionId),
		zap.String("reason", reason))
	return nil
}
