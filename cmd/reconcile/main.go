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

package main

import (
	"context"
	"flag"
	"fmt"

	"budget-ledger-go/internal/common"
	"budget-ledger-go/internal/config"
	"budget-ledger-go/internal/database"
	"budget-ledger-go/internal/models"

	"go.uber.org/zap"
)

type reconcileStats struct {
	totalUsers    int
	totalAccounts int
	drifted       int
	repaired      int
}

func printReconciliation(account models.Account, result *models.AccountReconciliation, repaired bool, isLast bool) {
	status := "ok"
	if !result.Consistent() {
		status = "DRIFT " + common.FormatAmount(result.Drift(), true)
		if repaired {
			status += " (repaired)"
		}
	}

	fmt.Printf("%s %-20s %-8s stored: %12s  replayed: %12s  (%d txs, id: %s) %s\n",
		common.BoxPrefix(isLast),
		account.Name,
		account.Type,
		common.FormatAmount(result.StoredBalance, false),
		common.FormatAmount(result.CalculatedBalance, false),
		result.TransactionCount,
		common.ShortId(account.Id),
		status)
}

func printUserHeader(user common.UserInfo, accountCount int) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Accounts: %d\n", accountCount)
	common.PrintBoxSeparator(common.ReportWidth - 2)
}

func processUser(ctx context.Context, user common.UserInfo, dbService *database.Service, repair bool, stats *reconcileStats, logger *zap.Logger) error {
	accounts, err := dbService.ListAccounts(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil
	}

	printUserHeader(user, len(accounts))
	for i, account := range accounts {
		stats.totalAccounts++

		var result *models.AccountReconciliation
		if repair {
			result, err = dbService.RepairAccountBalance(ctx, account.Id)
		} else {
			result, err = dbService.ReconcileAccount(ctx, account.Id)
		}
		if err != nil {
			logger.Error("Failed to reconcile account",
				zap.String("account_id", account.Id),
				zap.Error(err))
			continue
		}

		if !result.Consistent() {
			stats.drifted++
			if repair {
				stats.repaired++
			}
		}
		printReconciliation(account, result, repair, i == len(accounts)-1)
	}
	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	repairFlag := flag.Bool("repair", false, "Rewrite drifted balances from the transaction log")
	flag.Parse()

	logger.Info("Starting balance reconciliation", zap.Bool("repair", *repairFlag))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := common.InitializeUsers(ctx, dbService, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("ACCOUNT RECONCILIATION REPORT", common.ReportWidth)

	stats := reconcileStats{}
	for _, user := range users {
		stats.totalUsers++
		if err := processUser(ctx, user, dbService, *repairFlag, &stats, logger); err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d accounts across %d users, %d drifted, %d repaired",
		stats.totalAccounts, stats.totalUsers, stats.drifted, stats.repaired)
	common.PrintFooter(summary, common.ReportWidth)

	logger.Info("Balance reconciliation completed",
		zap.Int("users", stats.totalUsers),
		zap.Int("accounts", stats.totalAccounts),
		zap.Int("drifted", stats.drifted),
		zap.Int("repaired", stats.repaired))
}
