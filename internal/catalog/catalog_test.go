package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeModel(t *testing.T) {
	cases := map[string]string{
		"Beta SL Jacket":      "beta sl jacket",
		"  BETA   sl\tJacket ": "beta sl jacket",
		"ＡＴＯＭ Hoody":         "atom hoody",
		"":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeModel(in), in)
	}
}

func TestIdentity(t *testing.T) {
	a := WatchedProduct{ProductModel: "Beta SL Jacket", Color: "Black", Size: "M"}
	b := WatchedProduct{ProductModel: " beta  sl jacket", Color: "Black", Size: "M"}
	c := WatchedProduct{ProductModel: "Beta SL Jacket", Color: "Black", Size: "L"}

	assert.True(t, SameIdentity(a, b))
	assert.False(t, SameIdentity(a, c))
	assert.True(t, ContainsIdentity([]WatchedProduct{c, b}, a))
	assert.Equal(t, "Beta SL Jacket Black M", a.ProductKey())
}

func TestValidateSKUs(t *testing.T) {
	in := []WatchedProduct{
		{ProductModel: "a", SKU: "1001"},
		{ProductModel: "b", SKU: ""},
		{ProductModel: "c", SKU: "12a"},
		{ProductModel: "d", SKU: " 1002 "},
		{ProductModel: "e", SKU: "1003"},
	}
	valid, rejected := ValidateSKUs(in, 2)
	require.Len(t, valid, 2)
	assert.Equal(t, "1001", valid[0].SKU)
	assert.Equal(t, "1002", valid[1].SKU)
	require.Len(t, rejected, 3)
	assert.Equal(t, "e", rejected[2].Product.ProductModel)

	var ve *ValidationError
	assert.True(t, errors.As(ValidateSKU("x1"), &ve))
	assert.Equal(t, "sku", ve.Field)
}

func TestRawPriceDecode(t *testing.T) {
	var p WatchedProduct
	require.NoError(t, json.Unmarshal([]byte(`{"price": 64900, "domestic_price": "1,200"}`), &p))
	n, ok := p.Price.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(64900), n)
	d, ok := p.DomesticPrice.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(1200), d)

	require.NoError(t, json.Unmarshal([]byte(`{"price": "n/a"}`), &p))
	_, ok = p.Price.Int()
	assert.False(t, ok)

	out, err := json.Marshal(WatchedProduct{Price: PriceOf(500)})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"price":500`)
}

func TestRawPriceMarshalKeepsJSONValid(t *testing.T) {
	for _, raw := range []string{"NaN", "+5", ".5", "Inf", "0012", "5.", "300,000", "n/a"} {
		out, err := json.Marshal(WatchedProduct{SKU: "1", Price: RawPrice(raw)})
		require.NoError(t, err, raw)
		require.True(t, json.Valid(out), raw)

		var back WatchedProduct
		require.NoError(t, json.Unmarshal(out, &back), raw)
		assert.Equal(t, RawPrice(raw), back.Price, raw)
		assert.Contains(t, string(out), `"price":"`, raw)
	}

	for _, raw := range []string{"450000", "-1.5", "0"} {
		out, err := json.Marshal(RawPrice(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, string(out))
	}
}

func TestDiscountRate(t *testing.T) {
	r, ok := DiscountRate("450", "1000")
	assert.True(t, ok)
	assert.Equal(t, 45, r)

	_, ok = DiscountRate("450", "")
	assert.False(t, ok)
	_, ok = DiscountRate("0", "100")
	assert.False(t, ok)
}
