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

package common

import (
	"context"
	"fmt"
	"strings"

	"budget-ledger-go/internal/store"

	"go.uber.org/zap"
)

// UserInfo represents simplified user information for command-line utilities
type UserInfo struct {
	Id               string
	Name             string
	Email            string
	DefaultAccountId string
}

// InitializeUsers retrieves users based on an optional email filter.
// If emailFilter is provided, returns the single user with that email.
// If emailFilter is empty, returns all users.
func InitializeUsers(ctx context.Context, ledgerStore store.LedgerStore, emailFilter string, logger *zap.Logger) ([]UserInfo, error) {
	if emailFilter != "" {
		logger.Info("Looking up user by email", zap.String("email", emailFilter))
	}

	allUsers, err := ledgerStore.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	var users []UserInfo
	for _, u := range allUsers {
		if emailFilter != "" && !strings.EqualFold(u.Email, emailFilter) {
			continue
		}
		users = append(users, UserInfo{
			Id:               u.Id,
			Name:             u.Name,
			Email:            u.Email,
			DefaultAccountId: u.DefaultAccountId,
		})
	}

	if emailFilter != "" && len(users) == 0 {
		return nil, fmt.Errorf("user not found: %w", store.ErrNotFound)
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
