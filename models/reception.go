package models

import "time"

// ReceptionStatus values recognized by the goods-acceptance workflow.
const (
	ReceptionAccepted  = "accepted"
	ReceptionRemarks   = "has-remarks"
	ReceptionProcessed = "processed"
)

// Reception records one incoming goods-acceptance position. Receptions are a
// flat journal: created and listed, never mutated, so they carry no ledger.
type Reception struct {
	ID              int64     `json:"id"`
	Date            time.Time `json:"date"`
	OrderNumber     string    `json:"orderNumber" validate:"required"`
	Designation     string    `json:"designation" validate:"required"`
	Name            string    `json:"name" validate:"required"`
	Quantity        string    `json:"quantity" validate:"required"`
	RouteCardNumber string    `json:"routeCardNumber" validate:"required"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// SavedFilter is a named, user-saved task filter preset. The query payload is
// opaque to the backend; clients serialize whatever filter state they need.
type SavedFilter struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"createdAt"`
}
