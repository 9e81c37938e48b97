package api

import (
	"context"
	"errors"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/recurrence"
	"budget-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// GetBudget reports the user's budget and this month's spend on the default account
func (s *LedgerService) GetBudget(ctx context.Context, userId string) (*models.BudgetProgress, error) {
	progress := &models.BudgetProgress{Spent: decimal.Zero, PercentUsed: decimal.Zero}

	budget, err := s.store.GetBudget(ctx, userId)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if budget != nil {
		progress.Budget = &budget.Amount
	}

	user, err := s.store.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user.DefaultAccountId == "" {
		return progress, nil
	}
	progress.AccountId = user.DefaultAccountId

	monthStart, monthEnd := recurrence.MonthBounds(s.now(), s.loc)
	spent, err := s.store.SumExpenses(ctx, user.DefaultAccountId, monthStart, monthEnd)
	if err != nil {
		zap.L().Error("Failed to sum expenses", zap.String("user_id", userId), zap.Error(err))
		return nil, err
	}
	progress.Spent = spent

	if budget != nil && budget.Amount.IsPositive() {
		progress.PercentUsed = spent.Div(budget.Amount).Mul(hundred).Round(2)
	}
	return progress, nil
}

func (s *LedgerService) UpdateBudget(ctx context.Context, userId string, input models.BudgetInput) (*models.BudgetProgress, error) {
	if _, err := s.store.UpsertBudget(ctx, userId, input.Amount); err != nil {
		return nil, err
	}
	return s.GetBudget(ctx, userId)
}
