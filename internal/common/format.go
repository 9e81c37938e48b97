package common

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const ReportWidth = 90

// PrintHeader prints a title framed by separator lines
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", width))
}

// PrintFooter prints a summary framed by separator lines
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// ShortId truncates ids for table output
func ShortId(id string) string {
	if id == "" {
		return "none"
	}
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}

// FormatAmount renders a money value with two decimals and an explicit sign
// for non-zero drift.
func FormatAmount(amount decimal.Decimal, signed bool) string {
	s := amount.StringFixed(2)
	if signed && amount.IsPositive() {
		return "+" + s
	}
	return s
}
