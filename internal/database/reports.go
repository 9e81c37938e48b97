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
	"fmt"
	"sort"
	"time"

	"budget-ledger-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MonthlyAggregate totals a user's transactions with date in [from, to)
func (s *Service) MonthlyAggregate(ctx context.Context, userId string, from, to time.Time) (*models.MonthlyAggregate, error) {
	rows, err := s.db.QueryContext(ctx, queryUserTransactionsInRange, userId, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly transactions: %w", err)
	}
	defer closeRows(rows)

	aggregate := &models.MonthlyAggregate{
		Period:        from.Format("2006-01"),
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	byCategory := make(map[string]decimal.Decimal)

	for rows.Next() {
		var txType models.TransactionType
		var amountStr, category string
		if err := rows.Scan(&txType, &amountStr, &category); err != nil {
			return nil, fmt.Errorf("failed to scan monthly transaction: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}

		aggregate.TransactionCount++
		if txType == models.TransactionTypeIncome {
			aggregate.TotalIncome = aggregate.TotalIncome.Add(amount)
			continue
		}
		aggregate.TotalExpenses = aggregate.TotalExpenses.Add(amount)
		byCategory[category] = byCategory[category].Add(amount)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly rows: %w", err)
	}

	for category, amount := range byCategory {
		aggregate.ByCategory = append(aggregate.ByCategory, models.CategoryAmount{Category: category, Amount: amount})
	}
	sort.Slice(aggregate.ByCategory, func(i, j int) bool {
		a, b := aggregate.ByCategory[i], aggregate.ByCategory[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Category < b.Category
	})

	return aggregate, nil
}

// ClaimReportRun records that the report for (userId, period) is being sent.
// It returns false if a marker already exists.
func (s *Service) ClaimReportRun(ctx context.Context, userId, period string) (bool, error) {
	result, err := s.db.ExecContext(ctx, queryClaimReportRun, userId, period, uuid.New().String(), s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to claim report run: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (s *Service) CompleteReportRun(ctx context.Context, userId, period string) error {
	if _, err := s.db.ExecContext(ctx, queryCompleteReportRun, s.now().UTC(), userId, period); err != nil {
		return fmt.Errorf("failed to complete report run: %w", err)
	}
	return nil
}

// ReleaseReportRun drops a PENDING marker so a later tick can retry the report
func (s *Service) ReleaseReportRun(ctx context.Context, userId, period string) error {
	if _, err := s.db.ExecContext(ctx, queryReleaseReportRun, userId, period); err != nil {
		return fmt.Errorf("failed to release report run: %w", err)
	}
	zap.L().Debug("Report run released", zap.String("user_id", userId), zap.String("period", period))
	return nil
}
