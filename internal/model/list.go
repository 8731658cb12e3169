package model

import "time"

// ListStatus tracks a shopping list through its processing lifecycle.
type ListStatus string

const (
	// ListStatusPending means the list was submitted but not yet processed.
	ListStatusPending ListStatus = "PENDING"
	// ListStatusProcessing means a worker is currently processing the list.
	ListStatusProcessing ListStatus = "PROCESSING"
	// ListStatusCompleted means every item was processed.
	ListStatusCompleted ListStatus = "COMPLETED"
	// ListStatusFailed means processing aborted; ErrorMessage has the cause.
	ListStatusFailed ListStatus = "FAILED"
)

// ListSource identifies which adapter turns the list text into raw items.
type ListSource string

const (
	// ListSourceManual is free-form text typed or pasted by the user.
	ListSourceManual ListSource = "MANUAL"
	// ListSourceInvoice is structured invoice text from a fetched receipt.
	ListSourceInvoice ListSource = "INVOICE"
)

// ShoppingList is a submitted list awaiting or past processing.
type ShoppingList struct {
	CreatedAt    time.Time
	ProcessedAt  *time.Time
	ID           string
	Name         string
	OriginalText string
	Status       ListStatus
	Source       ListSource
	ErrorMessage string
}

// ListItem is one resolved line of a processed shopping list.
type ListItem struct {
	ID           int64
	ListID       string
	ProductID    string
	OriginalText string
	Unit         string
	Quantity     float64
	UnitPrice    *float64
	Total        *float64
	Purchased    bool
}
