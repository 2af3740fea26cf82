package csvimport

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHeader_Valid(t *testing.T) {
	valid, missing := ValidateHeader(strings.NewReader("sku,name,price,stock_quantity\n"))
	assert.True(t, valid)
	assert.Empty(t, missing)
}

func TestValidateHeader_Missing(t *testing.T) {
	valid, missing := ValidateHeader(strings.NewReader("sku,name\n"))
	assert.False(t, valid)
	assert.Contains(t, missing, "price")
	assert.Contains(t, missing, "stock_quantity")
}

func TestReader_StreamsRowsWithLineNumbers(t *testing.T) {
	csv := "sku,name,price,stock_quantity\n" +
		"A,Widget,1.00,1\n" +
		"B,Gadget,2.00,2\n"
	r, err := newReader(strings.NewReader(csv))
	require.NoError(t, err)

	row1, line1, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, 2, line1)
	assert.Equal(t, "A", row1["sku"])

	row2, line2, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, 3, line2)
	assert.Equal(t, "B", row2["sku"])

	_, _, err = r.next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReader_UnknownColumnsTolerated(t *testing.T) {
	csv := "sku,name,price,stock_quantity,warehouse\nA,Widget,1.00,1,west\n"
	r, err := newReader(strings.NewReader(csv))
	require.NoError(t, err)

	row, _, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, "A", row["sku"])
	_, ok := row["warehouse"]
	assert.False(t, ok, "unrecognized columns are ignored, not surfaced")
}

func TestNewReader_MissingRequiredColumn(t *testing.T) {
	_, err := newReader(strings.NewReader("sku,name\nA,Widget\n"))
	assert.ErrorIs(t, err, ErrMissingColumns)
}
