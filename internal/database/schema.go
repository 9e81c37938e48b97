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

const schema = `
	-- Users table (identity anchor)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		default_account_id TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Accounts table (current balance - hot data)
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('CURRENT', 'SAVINGS')),
		balance TEXT NOT NULL DEFAULT '0',
		is_default BOOLEAN NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
	-- At most one default account per user
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_one_default ON accounts(user_id) WHERE is_default = 1;

	-- Transactions table (the log the balance is derived from)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		type TEXT NOT NULL CHECK (type IN ('INCOME', 'EXPENSE')),
		amount TEXT NOT NULL,
		date TIMESTAMP NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		is_recurring BOOLEAN NOT NULL DEFAULT 0,
		recurring_interval TEXT,
		next_recurring_date TIMESTAMP,
		last_processed TIMESTAMP,
		parent_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'COMPLETED' CHECK (status IN ('PENDING', 'COMPLETED', 'FAILED')),
		failure_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions(account_id, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_due ON transactions(is_recurring, status, next_recurring_date);
	CREATE INDEX IF NOT EXISTS idx_transactions_parent_id ON transactions(parent_id);

	-- Budgets table (one per user)
	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		last_alert_sent TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Monthly report idempotency markers
	CREATE TABLE IF NOT EXISTS report_runs (
		user_id TEXT NOT NULL,
		period TEXT NOT NULL,
		run_id TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		PRIMARY KEY (user_id, period)
	);
`
