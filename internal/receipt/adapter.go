// Package receipt turns a receipt image into a partial transaction using a
// generative model. Model output is treated as untrusted text.
package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"budget-ledger-go/internal/ai"
	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxImageBytes is the largest accepted receipt image
const MaxImageBytes = 5 * 1024 * 1024

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
}

type Adapter struct {
	generator ai.Generator
}

func NewAdapter(generator ai.Generator) *Adapter {
	return &Adapter{generator: generator}
}

// Extract returns nil with no error when no receipt data was detected
func (a *Adapter) Extract(ctx context.Context, image []byte, mimeType string) (*models.ScannedReceipt, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is empty", store.ErrValidation)
	}
	if len(image) > MaxImageBytes {
		return nil, fmt.Errorf("%w: image is %d bytes, limit is %d", store.ErrValidation, len(image), MaxImageBytes)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: unsupported content type %q", store.ErrValidation, mimeType)
	}

	raw, err := a.generator.GenerateFromImage(ctx, ai.ReceiptPrompt(), mimeType, image)
	if err != nil {
		zap.L().Warn("Receipt extraction call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", store.ErrExtractionFailure, err)
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: empty response from model", store.ErrExtractionFailure)
	}

	return Parse(raw)
}

// Parse normalizes raw model text. Text that is not JSON, or an empty object,
// means no receipt was detected.
func Parse(raw string) (*models.ScannedReceipt, error) {
	clean := cleanModelJSON(raw)

	decoder := json.NewDecoder(bytes.NewReader([]byte(clean)))
	decoder.UseNumber()
	var parsed any
	if err := decoder.Decode(&parsed); err != nil {
		zap.L().Info("Model output is not JSON, treating as no receipt", zap.Error(err))
		return nil, nil
	}

	fields, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object, got %T", store.ErrExtractionFailure, parsed)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	amount, err := coerceAmount(fields["amount"])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrExtractionFailure, err)
	}

	return &models.ScannedReceipt{
		Amount:       amount,
		Date:         parseDate(stringField(fields, "date")),
		Description:  stringField(fields, "description"),
		MerchantName: stringField(fields, "merchantName"),
		Category:     models.NormalizeCategory(stringField(fields, "category")),
	}, nil
}

// cleanModelJSON strips code fences and any text around the outermost object
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

func coerceAmount(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		amount, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %q: %w", v.String(), err)
		}
		return amount.Abs(), nil
	case string:
		cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(strings.TrimSpace(v))
		if cleaned == "" {
			return decimal.Zero, nil
		}
		amount, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %q: %w", v, err)
		}
		return amount.Abs(), nil
	}
	return decimal.Zero, fmt.Errorf("unsupported amount type %T", value)
}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &date
		}
	}
	return nil
}

func stringField(fields map[string]any, key string) string {
	if s, ok := fields[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
