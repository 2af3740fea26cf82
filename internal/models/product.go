package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is a Product's catalogue visibility state.
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// ValidProductStatuses is the set CSV rows may specify in their status
// column.
var ValidProductStatuses = map[ProductStatus]bool{
	ProductStatusActive:       true,
	ProductStatusInactive:     true,
	ProductStatusDiscontinued: true,
}

// Product is a catalogue row keyed by natural SKU. PrimaryImageID is a
// weak reference: it must tolerate the referent being absent, and is
// nulled (not cascade-deleted) when the Image it points to is removed.
type Product struct {
	SKU            string          `db:"sku" json:"sku"`
	Name           string          `db:"name" json:"name"`
	Description    string          `db:"description" json:"description,omitempty"`
	Price          decimal.Decimal `db:"price" json:"price"`
	StockQuantity  int             `db:"stock_quantity" json:"stock_quantity"`
	Status         ProductStatus   `db:"status" json:"status"`
	PrimaryImageID *string         `db:"primary_image_id" json:"primary_image_id,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}
