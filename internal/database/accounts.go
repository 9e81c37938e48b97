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
	"strings"

	"budget-ledger-go/internal/ledger"
	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateAccount opens an account. The first account of a user becomes the
// default. A non-zero initial balance is recorded as an opening transaction so
// the balance stays re-derivable from the log.
func (s *Service) CreateAccount(ctx context.Context, params store.CreateAccountParams) (*models.Account, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, fmt.Errorf("%w: account name is required", store.ErrValidation)
	}
	if params.Type != models.AccountTypeCurrent && params.Type != models.AccountTypeSavings {
		return nil, fmt.Errorf("%w: unsupported account type %q", store.ErrValidation, params.Type)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	var existing int
	if err := tx.QueryRowContext(ctx, queryCountUserAccounts, params.UserId).Scan(&existing); err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	now := s.now().UTC()
	isDefault := params.IsDefault || existing == 0
	if isDefault {
		if _, err := tx.ExecContext(ctx, queryClearDefaultAccounts, now, params.UserId); err != nil {
			return nil, fmt.Errorf("failed to clear default account: %w", err)
		}
	}

	accountId := uuid.New().String()
	if _, err := tx.ExecContext(ctx, queryInsertAccount, accountId, params.UserId, params.Name, string(params.Type), isDefault, now, now); err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	if isDefault {
		if _, err := tx.ExecContext(ctx, querySetUserDefaultAccount, accountId, now, params.UserId); err != nil {
			return nil, fmt.Errorf("failed to set default account: %w", err)
		}
	}

	account, err := lockAccount(ctx, tx, params.UserId, accountId)
	if err != nil {
		return nil, err
	}

	if !params.InitialBalance.IsZero() {
		txType := models.TransactionTypeIncome
		if params.InitialBalance.IsNegative() {
			txType = models.TransactionTypeExpense
		}
		opening := &models.Transaction{
			Id:          uuid.New().String(),
			UserId:      params.UserId,
			AccountId:   accountId,
			Type:        txType,
			Amount:      params.InitialBalance.Abs(),
			Date:        now,
			Description: "Opening balance",
			Category:    models.DefaultCategory,
			Status:      models.TransactionStatusCompleted,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := insertTransaction(ctx, tx, opening); err != nil {
			return nil, err
		}
		if err := writeBalance(ctx, tx, account, ledger.ApplyCreate(account.Balance, txType, opening.Amount), now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Account created",
		zap.String("account_id", account.Id),
		zap.String("user_id", params.UserId),
		zap.String("type", string(params.Type)),
		zap.Bool("default", isDefault),
		zap.String("balance", account.Balance.String()))
	return account, nil
}

// GetAccount returns the account if it exists and belongs to userId
func (s *Service) GetAccount(ctx context.Context, userId, accountId string) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccount, accountId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", store.ErrNotFound, accountId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account.UserId != userId {
		return nil, fmt.Errorf("%w: account %s", store.ErrForbidden, accountId)
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context, userId string) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, queryListAccounts, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer closeRows(rows)

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// SetDefaultAccount moves the default flag to accountId and updates the user's reference
func (s *Service) SetDefaultAccount(ctx context.Context, userId, accountId string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := lockAccount(ctx, tx, userId, accountId); err != nil {
		return err
	}

	now := s.now().UTC()
	if _, err := tx.ExecContext(ctx, queryClearDefaultAccounts, now, userId); err != nil {
		return fmt.Errorf("failed to clear default account: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryMarkDefaultAccount, now, accountId); err != nil {
		return fmt.Errorf("failed to mark default account: %w", err)
	}
	if _, err := tx.ExecContext(ctx, querySetUserDefaultAccount, accountId, now, userId); err != nil {
		return fmt.Errorf("failed to set default account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Default account changed", zap.String("user_id", userId), zap.String("account_id", accountId))
	return nil
}
