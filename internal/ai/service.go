// Package ai wraps the Gemini client used for receipt extraction and report narratives.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Generator is the model boundary. Implementations return the raw model text.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateFromImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
}

type Service struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

var _ Generator = (*Service)(nil)

func NewService(ctx context.Context, cfg models.AIConfig) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	zap.L().Info("AI service initialized", zap.String("model", cfg.Model), zap.Duration("timeout", timeout))
	return &Service{client: client, model: cfg.Model, timeout: timeout}, nil
}

func (s *Service) GenerateText(ctx context.Context, prompt string) (string, error) {
	return s.generate(ctx, []*genai.Part{{Text: prompt}})
}

func (s *Service) GenerateFromImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	return s.generate(ctx, []*genai.Part{
		{Text: prompt},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
	})
}

func (s *Service) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	start := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: model call timed out after %v", store.ErrTransient, s.timeout)
		}
		return "", fmt.Errorf("%w: generate content: %v", store.ErrTransient, err)
	}

	text := strings.TrimSpace(resp.Text())
	zap.L().Debug("Model response received",
		zap.String("model", s.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("length", len(text)))
	return text, nil
}
