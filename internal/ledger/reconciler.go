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

// Package ledger holds the balance delta rules shared by every path that
// mutates an account balance.
package ledger

import (
	"fmt"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

// Signed returns amount for INCOME and -amount for EXPENSE
func Signed(txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if txType == models.TransactionTypeExpense {
		return amount.Neg()
	}
	return amount
}

// ApplyCreate returns the balance after adding a new transaction
func ApplyCreate(balance decimal.Decimal, txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	return balance.Add(Signed(txType, amount))
}

// ApplyUpdate returns the balance after replacing (oldType, oldAmount) with (newType, newAmount)
func ApplyUpdate(balance decimal.Decimal, oldType models.TransactionType, oldAmount decimal.Decimal, newType models.TransactionType, newAmount decimal.Decimal) decimal.Decimal {
	netChange := Signed(newType, newAmount).Sub(Signed(oldType, oldAmount))
	return balance.Add(netChange)
}

// ApplyDelete returns the balance after removing an existing transaction
func ApplyDelete(balance decimal.Decimal, txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	return balance.Sub(Signed(txType, amount))
}

// Replay recomputes a balance from scratch over a transaction log
func Replay(transactions []models.Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range transactions {
		balance = ApplyCreate(balance, tx.Type, tx.Amount)
	}
	return balance
}

// ValidateType rejects anything other than INCOME or EXPENSE
func ValidateType(txType models.TransactionType) error {
	switch txType {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
		return nil
	}
	return fmt.Errorf("%w: unsupported transaction type %q", store.ErrValidation, txType)
}

// ValidateAmount rejects negative amounts. decimal.Decimal cannot hold NaN or
// infinities, so finiteness is enforced where raw input is parsed.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative, got %s", store.ErrValidation, amount.String())
	}
	return nil
}
