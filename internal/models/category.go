package models

import "strings"

// DefaultCategory is used when a category is absent or unrecognized
const DefaultCategory = "other-expense"

// Categories is the fixed category vocabulary
var Categories = []string{
	"housing",
	"transportation",
	"groceries",
	"utilities",
	"entertainment",
	"food",
	"shopping",
	"healthcare",
	"education",
	"personal",
	"travel",
	"insurance",
	"gifts",
	"bills",
	"other-expense",
}

var categorySet = func() map[string]bool {
	set := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		set[c] = true
	}
	return set
}()

// IsValidCategory reports whether c is in the vocabulary (exact match)
func IsValidCategory(c string) bool {
	return categorySet[c]
}

// NormalizeCategory lower-cases and trims c, falling back to DefaultCategory
func NormalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if categorySet[c] {
		return c
	}
	return DefaultCategory
}
