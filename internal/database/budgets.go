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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanBudget(row rowScanner, extra ...any) (*models.Budget, error) {
	var budget models.Budget
	var amountStr string
	var lastAlert sql.NullTime

	dest := append([]any{&budget.Id, &budget.UserId, &amountStr, &lastAlert, &budget.CreatedAt, &budget.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse budget amount '%s': %w", amountStr, err)
	}
	budget.Amount = amount
	if lastAlert.Valid {
		t := lastAlert.Time
		budget.LastAlertSent = &t
	}
	return &budget, nil
}

// UpsertBudget sets the user's monthly limit, keeping lastAlertSent
func (s *Service) UpsertBudget(ctx context.Context, userId string, amount decimal.Decimal) (*models.Budget, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: budget amount must be positive, got %s", store.ErrValidation, amount.String())
	}

	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx, queryUpsertBudget, uuid.New().String(), userId, amount.String(), now, now); err != nil {
		return nil, fmt.Errorf("failed to upsert budget: %w", err)
	}

	zap.L().Info("Budget updated", zap.String("user_id", userId), zap.String("amount", amount.String()))
	return s.GetBudget(ctx, userId)
}

func (s *Service) GetBudget(ctx context.Context, userId string) (*models.Budget, error) {
	budget, err := scanBudget(s.db.QueryRowContext(ctx, queryGetBudget, userId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: budget for user %s", store.ErrNotFound, userId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return budget, nil
}

// ListBudgetTargets returns every budget whose owner has a default account
func (s *Service) ListBudgetTargets(ctx context.Context) ([]models.BudgetTarget, error) {
	rows, err := s.db.QueryContext(ctx, queryListBudgetTargets)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer closeRows(rows)

	var targets []models.BudgetTarget
	for rows.Next() {
		var target models.BudgetTarget
		budget, err := scanBudget(rows, &target.UserName, &target.UserEmail, &target.DefaultAccountId)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		target.Budget = *budget
		targets = append(targets, target)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budget rows: %w", err)
	}
	return targets, nil
}

// SumExpenses totals EXPENSE amounts on an account with date in [from, to)
func (s *Service) SumExpenses(ctx context.Context, accountId string, from, to time.Time) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, queryExpensesInRange, accountId, from.UTC(), to.UTC())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer closeRows(rows)

	total := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan expense: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse expense '%s': %w", amountStr, err)
		}
		total = total.Add(amount)
	}

	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating expense rows: %w", err)
	}
	return total, nil
}

// ClaimBudgetAlert sets lastAlertSent to now unless an alert was already sent
// on or after monthStart. The check and the write are one statement, so of
// two concurrent callers exactly one gets true.
func (s *Service) ClaimBudgetAlert(ctx context.Context, budgetId string, now, monthStart time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, queryClaimBudgetAlert, now.UTC(), now.UTC(), budgetId, monthStart.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to claim budget alert: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// ReleaseBudgetAlert restores the previous lastAlertSent after a failed send,
// provided nobody has claimed the budget since.
func (s *Service) ReleaseBudgetAlert(ctx context.Context, budgetId string, claimedAt time.Time, previous *time.Time) error {
	_, err := s.db.ExecContext(ctx, queryReleaseBudgetAlert, nullTime(previous), s.now().UTC(), budgetId, claimedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to release budget alert: %w", err)
	}
	return nil
}
