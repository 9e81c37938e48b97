package models

import (
	"github.com/shopspring/decimal"
)

// CategoryAmount is one row of a per-category breakdown
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MonthlyAggregate summarizes one user's transactions for one calendar month
type MonthlyAggregate struct {
	Period           string           `json:"period"` // YYYY-MM
	TotalIncome      decimal.Decimal  `json:"total_income"`
	TotalExpenses    decimal.Decimal  `json:"total_expenses"`
	ByCategory       []CategoryAmount `json:"by_category"`
	TransactionCount int              `json:"transaction_count"`
}

// Net returns income minus expenses
func (a MonthlyAggregate) Net() decimal.Decimal {
	return a.TotalIncome.Sub(a.TotalExpenses)
}

// MonthlyReport is the payload of the monthly-report email
type MonthlyReport struct {
	UserName   string           `json:"user_name"`
	MonthLabel string           `json:"month_label"`
	Stats      MonthlyAggregate `json:"stats"`
	Net        decimal.Decimal  `json:"net"`
	Insights   []string         `json:"insights,omitempty"`
}

// BudgetAlert is the payload of the budget-alert email
type BudgetAlert struct {
	UserName       string          `json:"user_name"`
	PercentageUsed decimal.Decimal `json:"percentage_used"`
	BudgetAmount   decimal.Decimal `json:"budget_amount"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	Remaining      decimal.Decimal `json:"remaining"`
	AccountName    string          `json:"account_name,omitempty"`
}
