package model

import "time"

// PriceRecord is one observed price for a product, either looked up from the
// external price source or carried over from an imported invoice.
type PriceRecord struct {
	ObservedAt time.Time
	ProductID  string
	StoreName  string
	Source     string
	ID         int64
	Price      float64
}
