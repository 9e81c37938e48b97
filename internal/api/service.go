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

package api

import (
	"context"
	"fmt"
	"time"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"go.uber.org/zap"
)

// LedgerService validates caller input and maps between API records and the store
type LedgerService struct {
	store store.LedgerStore
	loc   *time.Location
	now   func() time.Time
}

func NewLedgerService(ledgerStore store.LedgerStore, loc *time.Location) *LedgerService {
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerService{
		store: ledgerStore,
		loc:   loc,
		now:   time.Now,
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// ResolveUser returns the local user for a verified identity, creating it on first sight
func (s *LedgerService) ResolveUser(ctx context.Context, identity models.Identity) (*models.User, error) {
	if identity.ExternalId == "" {
		return nil, fmt.Errorf("%w: identity has no subject", store.ErrUnauthorized)
	}

	user, err := s.store.EnsureUser(ctx, identity)
	if err != nil {
		zap.L().Error("Failed to resolve user", zap.String("external_id", identity.ExternalId), zap.Error(err))
		return nil, err
	}
	return user, nil
}
