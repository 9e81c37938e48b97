package ledger

import (
	"errors"
	"testing"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSigned(t *testing.T) {
	if got := Signed(models.TransactionTypeIncome, d("12.50")); !got.Equal(d("12.50")) {
		t.Errorf("Expected 12.50, got %s", got)
	}
	if got := Signed(models.TransactionTypeExpense, d("12.50")); !got.Equal(d("-12.50")) {
		t.Errorf("Expected -12.50, got %s", got)
	}
}

func TestCreateThenDeleteRoundTrip(t *testing.T) {
	balances := []string{"0", "500.00", "-20.15", "1000000.01"}
	amounts := []string{"0", "0.01", "50.00", "9999.99"}
	types := []models.TransactionType{models.TransactionTypeIncome, models.TransactionTypeExpense}

	for _, b := range balances {
		for _, a := range amounts {
			for _, ty := range types {
				start := d(b)
				after := ApplyDelete(ApplyCreate(start, ty, d(a)), ty, d(a))
				if !after.Equal(start) {
					t.Errorf("round trip %s %s on %s: expected %s, got %s", ty, a, b, start, after)
				}
			}
		}
	}
}

func TestExpenseThenFlipToIncome(t *testing.T) {
	balance := ApplyCreate(d("500.00"), models.TransactionTypeExpense, d("50.00"))
	if !balance.Equal(d("450.00")) {
		t.Fatalf("Expected 450.00 after expense, got %s", balance)
	}

	balance = ApplyUpdate(balance, models.TransactionTypeExpense, d("50.00"), models.TransactionTypeIncome, d("50.00"))
	if !balance.Equal(d("550.00")) {
		t.Errorf("Expected 550.00 after flip to income, got %s", balance)
	}
}

func TestApplyUpdateAmountOnly(t *testing.T) {
	balance := ApplyUpdate(d("100"), models.TransactionTypeExpense, d("30"), models.TransactionTypeExpense, d("45"))
	if !balance.Equal(d("85")) {
		t.Errorf("Expected 85, got %s", balance)
	}
}

func TestReplayMatchesIncrementalApplication(t *testing.T) {
	log := []models.Transaction{
		{Type: models.TransactionTypeIncome, Amount: d("1000")},
		{Type: models.TransactionTypeExpense, Amount: d("250.40")},
		{Type: models.TransactionTypeExpense, Amount: d("19.60")},
		{Type: models.TransactionTypeIncome, Amount: d("0.05")},
	}

	incremental := decimal.Zero
	for _, tx := range log {
		incremental = ApplyCreate(incremental, tx.Type, tx.Amount)
	}

	if replayed := Replay(log); !replayed.Equal(incremental) {
		t.Errorf("Expected replay %s to equal incremental %s", replayed, incremental)
	}
	if !incremental.Equal(d("730.05")) {
		t.Errorf("Expected 730.05, got %s", incremental)
	}
}

func TestValidation(t *testing.T) {
	if err := ValidateAmount(d("-1")); !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation for negative amount, got %v", err)
	}
	if err := ValidateAmount(decimal.Zero); err != nil {
		t.Errorf("Expected zero amount to be valid, got %v", err)
	}
	if err := ValidateType("TRANSFER"); !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation for unknown type, got %v", err)
	}
	if err := ValidateType(models.TransactionTypeIncome); err != nil {
		t.Errorf("Expected INCOME to be valid, got %v", err)
	}
}
