package receipt

import (
	"context"
	"errors"
	"testing"
	"time"

	"budget-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

type fakeGenerator struct {
	text  string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

func (f *fakeGenerator) GenerateFromImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestParse_EmptyObjectInFence(t *testing.T) {
	receipt, err := Parse("```json\n{}\n```")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if receipt != nil {
		t.Errorf("Expected empty result, got %+v", receipt)
	}
}

func TestParse_Normalizes(t *testing.T) {
	receipt, err := Parse(`{"amount":"12.50","date":"2024-01-15","category":"zzz"}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if receipt == nil {
		t.Fatalf("Expected a receipt")
	}

	if !receipt.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Expected amount 12.5, got %s", receipt.Amount.String())
	}
	expectedDate := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	if receipt.Date == nil || !receipt.Date.Equal(expectedDate) {
		t.Errorf("Expected date %s, got %v", expectedDate, receipt.Date)
	}
	if receipt.Category != "other-expense" {
		t.Errorf("Expected category other-expense, got %s", receipt.Category)
	}
}

func TestParse_Cases(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantNil   bool
		wantErr   bool
		amount    string
		category  string
		merchant  string
		dateIsNil bool
	}{
		{name: "prose", raw: "I could not read this image.", wantNil: true},
		{name: "array", raw: `[1, 2]`, wantErr: true},
		{name: "bad amount", raw: `{"amount": "twelve"}`, wantErr: true},
		{name: "bool amount", raw: `{"amount": true}`, wantErr: true},
		{
			name:     "surrounding noise",
			raw:      "Here you go:\n```json\n{\"amount\": -42.10, \"category\": \" Groceries \", \"merchantName\": \"Corner Shop\"}\n```\nThanks",
			amount:   "42.1",
			category: "groceries",
			merchant: "Corner Shop",
		},
		{name: "currency string", raw: `{"amount": "$1,234.56", "date": "not a date"}`, amount: "1234.56", category: "other-expense", dateIsNil: true},
		{name: "missing amount", raw: `{"description": "coffee"}`, amount: "0", category: "other-expense", dateIsNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := Parse(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, store.ErrExtractionFailure) {
					t.Errorf("Expected ErrExtractionFailure, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if tt.wantNil {
				if receipt != nil {
					t.Errorf("Expected empty result, got %+v", receipt)
				}
				return
			}
			if receipt == nil {
				t.Fatalf("Expected a receipt")
			}
			if !receipt.Amount.Equal(decimal.RequireFromString(tt.amount)) {
				t.Errorf("Expected amount %s, got %s", tt.amount, receipt.Amount.String())
			}
			if receipt.Category != tt.category {
				t.Errorf("Expected category %s, got %s", tt.category, receipt.Category)
			}
			if receipt.MerchantName != tt.merchant {
				t.Errorf("Expected merchant %q, got %q", tt.merchant, receipt.MerchantName)
			}
			if tt.dateIsNil && receipt.Date != nil {
				t.Errorf("Expected no date, got %v", receipt.Date)
			}
		})
	}
}

func TestExtract_RejectsOversizeBeforeCallingModel(t *testing.T) {
	generator := &fakeGenerator{text: "{}"}
	adapter := NewAdapter(generator)

	_, err := adapter.Extract(context.Background(), make([]byte, MaxImageBytes+1), "image/png")
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	if generator.calls != 0 {
		t.Errorf("Expected no model call, got %d", generator.calls)
	}

	if _, err := adapter.Extract(context.Background(), []byte("pdf"), "application/pdf"); !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation for non-image, got %v", err)
	}
}

func TestExtract_ModelFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"timeout", &fakeGenerator{err: store.ErrTransient}},
		{"empty text", &fakeGenerator{text: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdapter(tt.gen).Extract(context.Background(), []byte("img"), "image/jpeg")
			if !errors.Is(err, store.ErrExtractionFailure) {
				t.Errorf("Expected ErrExtractionFailure, got %v", err)
			}
		})
	}
}

func TestExtract_Success(t *testing.T) {
	generator := &fakeGenerator{text: `{"amount": 9.99, "date": "2025-03-01", "description": "Lunch", "merchantName": "Cafe", "category": "food"}`}

	receipt, err := NewAdapter(generator).Extract(context.Background(), []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if receipt == nil || receipt.Category != "food" || receipt.Description != "Lunch" {
		t.Errorf("Unexpected receipt %+v", receipt)
	}
	if generator.calls != 1 {
		t.Errorf("Expected 1 model call, got %d", generator.calls)
	}
}
