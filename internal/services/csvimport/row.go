package csvimport

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/anvil-lab/catalogue/internal/models"
)

// requiredColumns are the header names that must be present for a CSV
// file to even attempt import, per the row validator's input contract.
var requiredColumns = []string{"sku", "name", "price", "stock_quantity"}

// recognizedColumns are requiredColumns plus the optional ones the
// parser understands; any other header is tolerated and ignored.
var recognizedColumns = append(append([]string{}, requiredColumns...), "description", "status", "primary_image")

// rawRow holds one CSV record keyed by header name, before validation.
type rawRow map[string]string

// row is the validated, typed form of one CSV record. SKU and Name
// carry validate tags that validateRow re-checks with rowValidate.Struct
// after its own per-field checks have passed; Price and
// StockQuantity are checked manually below since their raw form is a
// string that needs parsing before any tag-based rule could apply.
type row struct {
	SKU           string `validate:"required"`
	Name          string `validate:"required"`
	Price         decimal.Decimal
	StockQuantity int
	Description   string
	Status        models.ProductStatus
	PrimaryImage  string
}

var rowValidate = validator.New()

// toProduct builds the catalogue.Store write model for a validated row.
func (r *row) toProduct() *models.Product {
	return &models.Product{
		SKU:           r.SKU,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		Status:        r.Status,
	}
}

// validateRow converts a raw record into a typed row, collecting every
// field-level error instead of stopping at the first one so the
// ImportLog can report a complete picture per row.
func validateRow(raw rawRow) (*row, []string) {
	var errs []string
	r := &row{
		SKU:          raw["sku"],
		Name:         raw["name"],
		Description:  raw["description"],
		PrimaryImage: raw["primary_image"],
	}

	if raw["sku"] == "" {
		errs = append(errs, "sku is required")
	}
	if raw["name"] == "" {
		errs = append(errs, "name is required")
	}

	price, err := decimal.NewFromString(raw["price"])
	if err != nil {
		errs = append(errs, "Invalid price format")
	} else {
		r.Price = price
	}

	qty, err := parseNonNegativeInt(raw["stock_quantity"])
	if err != nil {
		errs = append(errs, "stock_quantity must be a non-negative integer")
	} else {
		r.StockQuantity = qty
	}

	if status, ok := raw["status"]; ok && status != "" {
		ps := models.ProductStatus(status)
		if !models.ValidProductStatuses[ps] {
			errs = append(errs, "status must be one of active, inactive, discontinued")
		} else {
			r.Status = ps
		}
	} else {
		r.Status = models.ProductStatusActive
	}

	if len(errs) > 0 {
		return nil, errs
	}

	if err := rowValidate.Struct(r); err != nil {
		return nil, []string{err.Error()}
	}
	return r, nil
}
