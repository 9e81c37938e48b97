package ai

import (
	"fmt"
	"regexp"
	"strings"

	"budget-ledger-go/internal/models"
)

// ReceiptPrompt asks for one strict JSON object describing the receipt
func ReceiptPrompt() string {
	return "Analyze this receipt image and extract the following information.\n" +
		"Output STRICT JSON only, a single object with these fields:\n" +
		"- \"amount\": number, the total amount\n" +
		"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
		"- \"description\": string, a brief description of the purchase\n" +
		"- \"merchantName\": string, the store or merchant name\n" +
		"- \"category\": string, one of: " + strings.Join(models.Categories, ", ") + "\n\n" +
		"If the image is not a receipt, return an empty object {}.\n" +
		"Do NOT wrap the response in code fences.\n"
}

// NarrativePrompt asks for short spending insights for a monthly aggregate
func NarrativePrompt(aggregate models.MonthlyAggregate) string {
	var b strings.Builder
	b.WriteString("Analyze this financial data and provide 3 concise, actionable insights.\n")
	b.WriteString("Focus on spending patterns and practical advice. Keep it friendly and conversational.\n\n")
	fmt.Fprintf(&b, "Financial data for %s:\n", aggregate.Period)
	fmt.Fprintf(&b, "- Total income: %s\n", aggregate.TotalIncome.StringFixed(2))
	fmt.Fprintf(&b, "- Total expenses: %s\n", aggregate.TotalExpenses.StringFixed(2))
	fmt.Fprintf(&b, "- Net: %s\n", aggregate.Net().StringFixed(2))
	b.WriteString("- Expense categories:\n")
	for _, c := range aggregate.ByCategory {
		fmt.Fprintf(&b, "  - %s: %s\n", c.Category, c.Amount.StringFixed(2))
	}
	b.WriteString("\nReturn one insight per line, without numbering or bullets.\n")
	return b.String()
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// ParseInsights splits narrative text into non-empty lines, dropping list markers
func ParseInsights(text string) []string {
	var insights []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line != "" {
			insights = append(insights, line)
		}
	}
	return insights
}
