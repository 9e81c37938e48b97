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

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var defaultAccountId sql.NullString
	err := row.Scan(&user.Id, &user.ExternalId, &user.Email, &user.Name, &defaultAccountId,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.DefaultAccountId = defaultAccountId.String
	return &user, nil
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := s.db.QueryContext(ctx, queryGetUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))

	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, userId)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}
	return user, nil
}

// EnsureUser returns the user bound to the external identity, creating it on first sight
func (s *Service) EnsureUser(ctx context.Context, identity models.Identity) (*models.User, error) {
	if identity.ExternalId == "" || identity.Email == "" {
		return nil, fmt.Errorf("%w: identity requires external id and email", store.ErrValidation)
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserByExternalId, identity.ExternalId))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("unable to query user by external id: %w", err)
	}

	now := s.now().UTC()
	userId := uuid.New().String()
	if _, err := s.db.ExecContext(ctx, queryInsertUser, userId, identity.ExternalId, identity.Email, identity.Name, now, now); err != nil {
		zap.L().Error("Failed to insert user", zap.String("email", identity.Email), zap.Error(err))
		return nil, fmt.Errorf("%w: unable to insert user %s: %v", store.ErrDuplicate, identity.Email, err)
	}

	// A concurrent first request may have won the insert; read back whichever row exists.
	user, err = scanUser(s.db.QueryRowContext(ctx, queryGetUserByExternalId, identity.ExternalId))
	if err != nil {
		return nil, fmt.Errorf("unable to read back user: %w", err)
	}

	zap.L().Info("User created on first sign-in",
		zap.String("id", user.Id),
		zap.String("external_id", identity.ExternalId),
		zap.String("email", identity.Email))
	return user, nil
}
