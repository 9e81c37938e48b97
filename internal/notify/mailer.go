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

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	TemplateMonthlyReport = "monthly-report"
	TemplateBudgetAlert   = "budget-alert"
)

// Message is one templated email
type Message struct {
	To       string `json:"to"`
	Template string `json:"template"`
	Subject  string `json:"subject"`
	Data     any    `json:"data"`
}

// Mailer is the email dispatch boundary
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPMailer posts messages as JSON to an email provider endpoint
type HTTPMailer struct {
	endpoint string
	apiKey   string
	from     string
	timeout  time.Duration
	client   http.Client
}

// NewMailer returns an HTTPMailer, or a LogMailer when no endpoint is configured
func NewMailer(cfg models.EmailConfig) (Mailer, error) {
	if cfg.Endpoint == "" {
		zap.L().Warn("EMAIL_ENDPOINT not set, emails will only be logged")
		return LogMailer{}, nil
	}

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPMailer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		timeout:  timeout,
		client:   httpClient,
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

type sendRequest struct {
	From string `json:"from"`
	Message
}

// Send delivers msg. Timeouts, network errors and 5xx responses are
// ErrTransient; any other non-2xx response is a rejection.
func (m *HTTPMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(sendRequest{From: m.from, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: email dispatch timed out after %v", store.ErrTransient, m.timeout)
		}
		return fmt.Errorf("%w: email dispatch failed: %v", store.ErrTransient, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close email response body", zap.Error(err))
		}
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		zap.L().Info("Email accepted",
			zap.String("to", msg.To),
			zap.String("template", msg.Template),
			zap.Int("status", resp.StatusCode))
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: email provider returned %d: %s", store.ErrTransient, resp.StatusCode, detail)
	}
	return fmt.Errorf("email rejected with status %d: %s", resp.StatusCode, detail)
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	zap.L().Info("Email (log only)",
		zap.String("to", msg.To),
		zap.String("template", msg.Template),
		zap.String("subject", msg.Subject),
		zap.Any("data", msg.Data))
	return nil
}
