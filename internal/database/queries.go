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

const transactionColumns = `id, user_id, account_id, type, amount, date, description, category,
		is_recurring, recurring_interval, next_recurring_date, last_processed, parent_id,
		status, failure_reason, created_at, updated_at`

const (
	// User queries
	queryGetUsers = `
		SELECT id, external_id, email, name, default_account_id, created_at, updated_at
		FROM users
		ORDER BY created_at`

	queryInsertUser = `
		INSERT INTO users (id, external_id, email, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO NOTHING`

	queryGetUserById = `
		SELECT id, external_id, email, name, default_account_id, created_at, updated_at
		FROM users
		WHERE id = ?`

	queryGetUserByExternalId = `
		SELECT id, external_id, email, name, default_account_id, created_at, updated_at
		FROM users
		WHERE external_id = ?`

	querySetUserDefaultAccount = `
		UPDATE users SET default_account_id = ?, updated_at = ? WHERE id = ?`

	// Account queries
	queryInsertAccount = `
		INSERT INTO accounts (id, user_id, name, type, balance, is_default, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, '0', ?, 1, ?, ?)`

	queryCountUserAccounts = `
		SELECT COUNT(*) FROM accounts WHERE user_id = ?`

	queryGetAccount = `
		SELECT id, user_id, name, type, balance, is_default, version, created_at, updated_at
		FROM accounts
		WHERE id = ?`

	queryListAccounts = `
		SELECT id, user_id, name, type, balance, is_default, version, created_at, updated_at
		FROM accounts
		WHERE user_id = ?
		ORDER BY created_at, id`

	queryClearDefaultAccounts = `
		UPDATE accounts SET is_default = 0, updated_at = ? WHERE user_id = ? AND is_default = 1`

	queryMarkDefaultAccount = `
		UPDATE accounts SET is_default = 1, updated_at = ? WHERE id = ?`

	queryUpdateAccountBalance = `
		UPDATE accounts
		SET balance = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransaction = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ?`

	queryUpdateTransaction = `
		UPDATE transactions
		SET account_id = ?, type = ?, amount = ?, date = ?, description = ?, category = ?,
		    is_recurring = ?, recurring_interval = ?, next_recurring_date = ?,
		    status = ?, failure_reason = ?, updated_at = ?
		WHERE id = ?`

	queryDeleteTransaction = `
		DELETE FROM transactions WHERE id = ?`

	queryListTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = ? AND account_id = ?
		ORDER BY date DESC, created_at DESC
		LIMIT ? OFFSET ?`

	queryAccountLedger = `
		SELECT type, amount
		FROM transactions
		WHERE account_id = ?`

	// Recurring queries
	queryListDueRecurring = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE is_recurring = 1
		  AND status != 'FAILED'
		  AND next_recurring_date IS NOT NULL
		  AND next_recurring_date <= ?
		ORDER BY user_id, next_recurring_date ASC, created_at ASC, id`

	queryAdvanceRecurring = `
		UPDATE transactions
		SET next_recurring_date = ?, last_processed = ?, updated_at = ?
		WHERE id = ?`

	queryMarkRecurringFailed = `
		UPDATE transactions
		SET status = 'FAILED', failure_reason = ?, updated_at = ?
		WHERE id = ?`

	// Budget queries
	queryUpsertBudget = `
		INSERT INTO budgets (id, user_id, amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at`

	queryGetBudget = `
		SELECT id, user_id, amount, last_alert_sent, created_at, updated_at
		FROM budgets
		WHERE user_id = ?`

	queryListBudgetTargets = `
		SELECT b.id, b.user_id, b.amount, b.last_alert_sent, b.created_at, b.updated_at,
		       u.name, u.email, u.default_account_id
		FROM budgets b
		JOIN users u ON u.id = b.user_id
		WHERE u.default_account_id IS NOT NULL AND u.default_account_id != ''
		ORDER BY b.user_id`

	queryExpensesInRange = `
		SELECT amount
		FROM transactions
		WHERE account_id = ? AND type = 'EXPENSE' AND date >= ? AND date < ?`

	queryClaimBudgetAlert = `
		UPDATE budgets
		SET last_alert_sent = ?, updated_at = ?
		WHERE id = ? AND (last_alert_sent IS NULL OR last_alert_sent < ?)`

	queryReleaseBudgetAlert = `
		UPDATE budgets
		SET last_alert_sent = ?, updated_at = ?
		WHERE id = ? AND last_alert_sent = ?`

	// Report queries
	queryUserTransactionsInRange = `
		SELECT type, amount, category
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?`

	queryClaimReportRun = `
		INSERT INTO report_runs (user_id, period, run_id, status, created_at)
		VALUES (?, ?, ?, 'PENDING', ?)
		ON CONFLICT(user_id, period) DO NOTHING`

	queryCompleteReportRun = `
		UPDATE report_runs SET status = 'SENT', completed_at = ? WHERE user_id = ? AND period = ?`

	queryReleaseReportRun = `
		DELETE FROM report_runs WHERE user_id = ? AND period = ? AND status = 'PENDING'`
)
