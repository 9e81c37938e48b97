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

package api

import (
	"context"
	"fmt"
	"strings"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"go.uber.org/zap"
)

func (s *LedgerService) CreateAccount(ctx context.Context, userId string, req models.CreateAccountRequest) (*models.AccountRecord, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id is required", store.ErrValidation)
	}

	account, err := s.store.CreateAccount(ctx, store.CreateAccountParams{
		UserId:         userId,
		Name:           strings.TrimSpace(req.Name),
		Type:           models.AccountType(strings.ToUpper(string(req.Type))),
		InitialBalance: req.InitialBalance,
		IsDefault:      req.IsDefault,
	})
	if err != nil {
		zap.L().Error("Failed to create account", zap.String("user_id", userId), zap.Error(err))
		return nil, err
	}

	record := toAccountRecord(*account)
	return &record, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context, userId string) ([]models.AccountRecord, error) {
	accounts, err := s.store.ListAccounts(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to list accounts", zap.String("user_id", userId), zap.Error(err))
		return nil, err
	}

	result := make([]models.AccountRecord, len(accounts))
	for i, account := range accounts {
		result[i] = toAccountRecord(account)
	}
	return result, nil
}

// SetDefaultAccount marks accountId as the user's default. Accounts of other
// users are reported as not found.
func (s *LedgerService) SetDefaultAccount(ctx context.Context, userId, accountId string) error {
	if err := s.store.SetDefaultAccount(ctx, userId, accountId); err != nil {
		return hideForeign(err)
	}
	return nil
}

func toAccountRecord(account models.Account) models.AccountRecord {
	return models.AccountRecord{
		Id:        account.Id,
		Name:      account.Name,
		Type:      account.Type,
		Balance:   account.Balance,
		IsDefault: account.IsDefault,
	}
}
