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
	"errors"
	"flag"
	"fmt"
	"regexp"
	"strings"

	"budget-ledger-go/internal/common"
	"budget-ledger-go/internal/config"
	"budget-ledger-go/internal/database"
	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func parseAmount(flagName, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s must be a decimal amount: %w", flagName, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("--%s cannot be negative", flagName)
	}
	return amount, nil
}

func ensureEmailFree(ctx context.Context, dbService *database.Service, email string) error {
	_, err := common.InitializeUsers(ctx, dbService, email, zap.NewNop())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	default:
		return fmt.Errorf("user already exists with email %s", email)
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "User's full name (required)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	externalIdFlag := flag.String("external-id", "", "Identity provider subject (default: generated local id)")
	accountFlag := flag.String("account", "Main", "Name of the first account")
	accountTypeFlag := flag.String("type", string(models.AccountTypeCurrent), "Account type: CURRENT or SAVINGS")
	balanceFlag := flag.String("balance", "", "Opening balance of the first account")
	budgetFlag := flag.String("budget", "", "Monthly budget limit (optional)")
	flag.Parse()

	if *nameFlag == "" || *emailFlag == "" {
		zap.L().Fatal("Both flags are required: --name and --email")
	}
	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}
	if err := validateEmail(*emailFlag); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}
	balance, err := parseAmount("balance", *balanceFlag)
	if err != nil {
		zap.L().Fatal("Invalid balance", zap.Error(err))
	}
	budget, err := parseAmount("budget", *budgetFlag)
	if err != nil {
		zap.L().Fatal("Invalid budget", zap.Error(err))
	}

	externalId := *externalIdFlag
	if externalId == "" {
		externalId = "local-" + uuid.New().String()
	}

	zap.L().Info("Starting user creation process",
		zap.String("name", *nameFlag),
		zap.String("email", *emailFlag))

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if err := ensureEmailFree(ctx, dbService, *emailFlag); err != nil {
		zap.L().Fatal("Cannot create user", zap.Error(err))
	}

	user, err := dbService.EnsureUser(ctx, models.Identity{
		ExternalId: externalId,
		Email:      *emailFlag,
		Name:       *nameFlag,
	})
	if err != nil {
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	account, err := dbService.CreateAccount(ctx, store.CreateAccountParams{
		UserId:         user.Id,
		Name:           *accountFlag,
		Type:           models.AccountType(strings.ToUpper(*accountTypeFlag)),
		InitialBalance: balance,
		IsDefault:      true,
	})
	if err != nil {
		zap.L().Fatal("Failed to create account", zap.String("user_id", user.Id), zap.Error(err))
	}

	if budget.IsPositive() {
		if _, err := dbService.UpsertBudget(ctx, user.Id, budget); err != nil {
			zap.L().Fatal("Failed to set budget", zap.String("user_id", user.Id), zap.Error(err))
		}
	}

	common.PrintHeader("USER CREATED", common.ReportWidth)
	fmt.Printf("ID:          %s\n", user.Id)
	fmt.Printf("External ID: %s\n", user.ExternalId)
	fmt.Printf("Name:        %s\n", user.Name)
	fmt.Printf("Email:       %s\n", user.Email)
	fmt.Printf("Account:     %s (%s) balance %s\n", account.Name, account.Type, common.FormatAmount(account.Balance, false))
	if budget.IsPositive() {
		fmt.Printf("Budget:      %s per month\n", common.FormatAmount(budget, false))
	}
	common.PrintFooter("User ready", common.ReportWidth)

	zap.L().Info("User created successfully",
		zap.String("id", user.Id),
		zap.String("account_id", account.Id))
}
