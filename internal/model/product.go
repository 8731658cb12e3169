// Package model defines the core domain models used throughout the application.
package model

import "time"

// Product is the canonical record that raw item text ultimately resolves to.
type Product struct {
	CreatedAt           time.Time
	ID                  string
	Name                string
	NormalizedName      string
	Unit                string
	StoreCode           string
	CategoryID          int
	NeedsNameReview     bool
	NeedsCategoryReview bool
}

// SynonymSource indicates how a product synonym was created.
type SynonymSource string

const (
	// SynonymSourceCorrection indicates the synonym was created by a curator rename.
	SynonymSourceCorrection SynonymSource = "manual-correction"
	// SynonymSourceMerge indicates the synonym was created when merging two products.
	SynonymSourceMerge SynonymSource = "merge"
)

// ProductSynonym maps an alternate text form to its canonical product.
type ProductSynonym struct {
	CreatedAt      time.Time
	OriginalText   string
	NormalizedText string
	ProductID      string
	Source         SynonymSource
	ID             int64
}

// MatchOrigin identifies which resolver strategy produced a match.
type MatchOrigin string

const (
	// OriginStoreCode means the product was found by its store-issued code.
	OriginStoreCode MatchOrigin = "STORE_CODE"
	// OriginSynonym means a curator-approved synonym pointed at the product.
	OriginSynonym MatchOrigin = "SYNONYM"
	// OriginExactName means the normalized names matched exactly.
	OriginExactName MatchOrigin = "EXACT_NAME"
	// OriginCreated means no match existed and a provisional product was created.
	OriginCreated MatchOrigin = "CREATED"
)
