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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Identity is what the identity provider returns for a verified caller
type Identity struct {
	ExternalId string
	Email      string
	Name       string
}

// CreateAccountRequest is the body of POST /accounts
type CreateAccountRequest struct {
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	IsDefault      bool            `json:"is_default"`
}

// TransactionInput is the body of POST /transactions and PUT /transactions/{id}
type TransactionInput struct {
	AccountId         string            `json:"account_id"`
	Type              TransactionType   `json:"type"`
	Amount            decimal.Decimal   `json:"amount"`
	Date              time.Time         `json:"date"`
	Description       string            `json:"description"`
	Category          string            `json:"category"`
	IsRecurring       bool              `json:"is_recurring"`
	RecurringInterval RecurringInterval `json:"recurring_interval,omitempty"`
}

// TransactionRecord is the API view of a transaction
type TransactionRecord struct {
	Id                string            `json:"id"`
	AccountId         string            `json:"account_id"`
	Type              TransactionType   `json:"type"`
	Amount            decimal.Decimal   `json:"amount"`
	Date              time.Time         `json:"date"`
	Description       string            `json:"description"`
	Category          string            `json:"category"`
	IsRecurring       bool              `json:"is_recurring"`
	RecurringInterval RecurringInterval `json:"recurring_interval,omitempty"`
	NextRecurringDate *time.Time        `json:"next_recurring_date,omitempty"`
	Status            TransactionStatus `json:"status"`
}

// TransactionResult is returned by balance-mutating operations
type TransactionResult struct {
	Transaction TransactionRecord `json:"transaction"`
	NewBalance  decimal.Decimal   `json:"new_balance"`
}

// AccountRecord is the API view of an account
type AccountRecord struct {
	Id        string          `json:"id"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	IsDefault bool            `json:"is_default"`
}

// BudgetInput is the body of PUT /budget
type BudgetInput struct {
	Amount decimal.Decimal `json:"amount"`
}

// BudgetProgress reports current-month spend on the default account
type BudgetProgress struct {
	Budget      *decimal.Decimal `json:"budget,omitempty"`
	Spent       decimal.Decimal  `json:"spent"`
	PercentUsed decimal.Decimal  `json:"percent_used"`
	AccountId   string           `json:"account_id,omitempty"`
}

// ScannedReceipt is the normalized result of receipt extraction
type ScannedReceipt struct {
	Amount       decimal.Decimal `json:"amount"`
	Date         *time.Time      `json:"date,omitempty"`
	Description  string          `json:"description"`
	MerchantName string          `json:"merchant_name"`
	Category     string          `json:"category"`
}

// ScanResult is the body returned by POST /receipts/scan
type ScanResult struct {
	Found   bool            `json:"found"`
	Receipt *ScannedReceipt `json:"receipt,omitempty"`
	Message string          `json:"message,omitempty"`
}
