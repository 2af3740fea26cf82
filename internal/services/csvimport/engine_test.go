package csvimport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const s5CSV = "sku,name,price,stock_quantity\n" +
	"SKU001,Product 1,10.00,100\n" +
	"SKU002,Product 2,invalid,200\n" +
	"SKU003,Product 3,30.00,300\n"

// TestS5_MixedRows exercises spec scenario S5.
func TestS5_MixedRows(t *testing.T) {
	cat := newFakeCatalog()
	engine := New(cat, fakeResolver{}, zap.NewNop())

	result, err := engine.Import(context.Background(), "products.csv", []byte(s5CSV), Options{
		SkipInvalid:    true,
		UpdateExisting: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.Invalid)
	assert.Equal(t, 0, result.Duplicates)
	assert.InDelta(t, 66.67, result.SuccessRate, 0.01)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Errors, "Invalid price format")

	logEntry, err := cat.GetImportLog(context.Background(), result.ImportLogID)
	require.NoError(t, err)
	assert.Equal(t, "partially_completed", string(logEntry.Status))
}

// TestS6_ReimportWithoutUpdate exercises spec scenario S6.
func TestS6_ReimportWithoutUpdate(t *testing.T) {
	cat := newFakeCatalog()
	engine := New(cat, fakeResolver{}, zap.NewNop())
	ctx := context.Background()

	_, err := engine.Import(ctx, "products.csv", []byte(s5CSV), Options{SkipInvalid: true, UpdateExisting: true})
	require.NoError(t, err)

	result, err := engine.Import(ctx, "products.csv", []byte(s5CSV), Options{SkipInvalid: true, UpdateExisting: false})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.Invalid)
	assert.Equal(t, 2, result.Duplicates)
}

func TestImport_ValidateOnlyDoesNotPersist(t *testing.T) {
	cat := newFakeCatalog()
	engine := New(cat, fakeResolver{}, zap.NewNop())

	result, err := engine.Import(context.Background(), "products.csv", []byte(s5CSV), Options{
		ValidateOnly: true,
		SkipInvalid:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)

	_, err = cat.GetProductBySKU(context.Background(), "SKU001")
	assert.Error(t, err, "validate_only must not write any Product row")
}

func TestImport_AbortsOnFirstInvalidWhenSkipInvalidFalse(t *testing.T) {
	cat := newFakeCatalog()
	engine := New(cat, fakeResolver{}, zap.NewNop())

	_, err := engine.Import(context.Background(), "products.csv", []byte(s5CSV), Options{
		SkipInvalid:    false,
		UpdateExisting: true,
	})
	assert.Error(t, err)
}

func TestImport_PrimaryImageAttachment(t *testing.T) {
	cat := newFakeCatalog()
	engine := New(cat, fakeResolver{}, zap.NewNop())

	csv := "sku,name,price,stock_quantity,primary_image\nSKU001,Product 1,10.00,100,logo.png\n"
	_, err := engine.Import(context.Background(), "products.csv", []byte(csv), Options{SkipInvalid: true, UpdateExisting: true})
	require.NoError(t, err)

	p, err := cat.GetProductBySKU(context.Background(), "SKU001")
	require.NoError(t, err)
	require.NotNil(t, p.PrimaryImageID)
	assert.Equal(t, "resolved-image-id", *p.PrimaryImageID)
}
