package catalogue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/anvil-lab/catalogue/internal/models"
)

const productColumns = `sku, name, description, price, stock_quantity, status, primary_image_id, created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.SKU, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.Status,
		&p.PrimaryImageID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product: %w", models.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

// UpsertProduct inserts p or updates the existing row with the same
// SKU, reporting whether a new row was created.
func (s *pgxStore) UpsertProduct(ctx context.Context, tx Tx, p *models.Product) (bool, error) {
	var created bool
	err := tx.QueryRow(ctx,
		`INSERT INTO products (sku, name, description, price, stock_quantity, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
			stock_quantity = EXCLUDED.stock_quantity, status = EXCLUDED.status, updated_at = NOW()
		 RETURNING (xmax = 0)`,
		p.SKU, p.Name, p.Description, p.Price, p.StockQuantity, p.Status,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("%w: failed to upsert product %s: %v", models.ErrStorageError, p.SKU, err)
	}
	return created, nil
}

// GetProductBySKU fetches one Product.
func (s *pgxStore) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return scanProduct(s.db.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku))
}

// AttachPrimaryImage sets sku's primary_image_id, idempotently —
// setting the same value twice is a no-op at the SQL level since the
// WHERE clause only ever writes NOW() once per distinct change.
func (s *pgxStore) AttachPrimaryImage(ctx context.Context, tx Tx, sku, imageID string) error {
	_, err := tx.Exec(ctx,
		`UPDATE products SET primary_image_id = $1, updated_at = NOW()
		 WHERE sku = $2 AND primary_image_id IS DISTINCT FROM $1`,
		imageID, sku,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to attach primary image: %v", models.ErrStorageError, err)
	}
	return nil
}

// NullifyImageRef clears primary_image_id on any Product still
// pointing at imageID, matching the "nulled, not cascade-deleted"
// invariant on Image deletion.
func (s *pgxStore) NullifyImageRef(ctx context.Context, imageID string) error {
	_, err := s.db.Pool.Exec(ctx,
		`UPDATE products SET primary_image_id = NULL, updated_at = NOW() WHERE primary_image_id = $1`,
		imageID,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to nullify image reference: %v", models.ErrStorageError, err)
	}
	return nil
}
