package model

// RawItem is an ephemeral line item produced by one of the text adapters.
// It is consumed immediately by the resolver and never persisted as-is.
type RawItem struct {
	OriginalText   string
	ProductNameRaw string
	UnitHint       string
	StoreCode      string
	Quantity       float64
	UnitPrice      *float64
	LineTotal      *float64
}
