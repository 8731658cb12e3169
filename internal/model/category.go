package model

import "time"

// DefaultCategoryName is the fallback category for names no rule matches.
// It is created lazily on first use.
const DefaultCategoryName = "Outros"

// Category represents a product category.
type Category struct {
	CreatedAt time.Time
	Name      string
	ID        int
	IsActive  bool
}

// Confidence indicates how a category assignment was produced.
type Confidence string

const (
	// ConfidenceHigh means a classification rule matched the name.
	ConfidenceHigh Confidence = "HIGH"
	// ConfidenceLow means the name fell through to the default category.
	ConfidenceLow Confidence = "LOW"
)

// CategoryRule is a learned (term, category) pair used to auto-categorize
// new products. Rules are evaluated by priority descending; the first rule
// whose term is contained in the normalized product name wins.
type CategoryRule struct {
	CreatedAt      time.Time
	NormalizedTerm string
	ID             int64
	CategoryID     int
	Priority       int
	UsageCount     int
}
