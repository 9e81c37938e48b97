package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/recurrence"
	"budget-ledger-go/internal/store"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *LedgerService) CreateTransaction(ctx context.Context, userId string, input models.TransactionInput) (*models.TransactionResult, error) {
	params, err := s.buildParams(userId, input)
	if err != nil {
		return nil, err
	}

	result, err := s.store.CreateTransaction(ctx, params)
	if err != nil {
		zap.L().Error("Failed to create transaction", zap.String("user_id", userId), zap.Error(err))
		return nil, hideForeign(err)
	}
	return toTransactionResult(result), nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, userId, transactionId string, input models.TransactionInput) (*models.TransactionResult, error) {
	params, err := s.buildParams(userId, input)
	if err != nil {
		return nil, err
	}

	result, err := s.store.UpdateTransaction(ctx, transactionId, params)
	if err != nil {
		zap.L().Error("Failed to update transaction",
			zap.String("user_id", userId),
			zap.String("transaction_id", transactionId),
			zap.Error(err))
		return nil, hideForeign(err)
	}
	return toTransactionResult(result), nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userId, transactionId string) (*models.TransactionResult, error) {
	result, err := s.store.DeleteTransaction(ctx, userId, transactionId)
	if err != nil {
		return nil, hideForeign(err)
	}
	return toTransactionResult(result), nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, userId, transactionId string) (*models.TransactionRecord, error) {
	tx, err := s.store.GetTransaction(ctx, userId, transactionId)
	if err != nil {
		return nil, err
	}
	record := toTransactionRecord(*tx)
	return &record, nil
}

// GetTransactionHistory returns paginated transaction history for one account
func (s *LedgerService) GetTransactionHistory(ctx context.Context, userId, accountId string, limit, offset int) ([]models.TransactionRecord, error) {
	if _, err := s.store.GetAccount(ctx, userId, accountId); err != nil {
		return nil, hideForeign(err)
	}

	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	transactions, err := s.store.ListTransactions(ctx, userId, accountId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("user_id", userId),
			zap.String("account_id", accountId),
			zap.Error(err))
		return nil, err
	}

	result := make([]models.TransactionRecord, len(transactions))
	for i, tx := range transactions {
		result[i] = toTransactionRecord(tx)
	}
	return result, nil
}

// buildParams normalizes input and derives the first recurring date
func (s *LedgerService) buildParams(userId string, input models.TransactionInput) (store.TransactionParams, error) {
	if input.AccountId == "" {
		return store.TransactionParams{}, fmt.Errorf("%w: account_id is required", store.ErrValidation)
	}

	category := strings.ToLower(strings.TrimSpace(input.Category))
	if category == "" {
		category = models.DefaultCategory
	}

	date := input.Date
	if date.IsZero() {
		date = s.now()
	}

	params := store.TransactionParams{
		UserId:      userId,
		AccountId:   input.AccountId,
		Type:        models.TransactionType(strings.ToUpper(string(input.Type))),
		Amount:      input.Amount,
		Date:        date.UTC(),
		Description: strings.TrimSpace(input.Description),
		Category:    category,
		IsRecurring: input.IsRecurring,
	}

	if input.IsRecurring {
		interval := models.RecurringInterval(strings.ToUpper(string(input.RecurringInterval)))
		next, err := recurrence.NextOccurrence(params.Date, interval)
		if err != nil {
			return store.TransactionParams{}, err
		}
		params.RecurringInterval = interval
		params.NextRecurringDate = &next
	}
	return params, nil
}

// hideForeign reports another user's resources as not found
func hideForeign(err error) error {
	if errors.Is(err, store.ErrForbidden) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	return err
}

func toTransactionRecord(tx models.Transaction) models.TransactionRecord {
	return models.TransactionRecord{
		Id:                tx.Id,
		AccountId:         tx.AccountId,
		Type:              tx.Type,
		Amount:            tx.Amount,
		Date:              tx.Date,
		Description:       tx.Description,
		Category:          tx.Category,
		IsRecurring:       tx.IsRecurring,
		RecurringInterval: tx.RecurringInterval,
		NextRecurringDate: tx.NextRecurringDate,
		Status:            tx.Status,
	}
}

func toTransactionResult(result *store.MutationResult) *models.TransactionResult {
	return &models.TransactionResult{
		Transaction: toTransactionRecord(*result.Transaction),
		NewBalance:  result.NewBalance,
	}
}
