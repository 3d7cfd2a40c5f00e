package storeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stores", r.URL.Path)
		assert.Equal(t, "12345", r.URL.Query().Get("product_option_id"))
		assert.Equal(t, "store_sort|asc", r.URL.Query().Get("orderby"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"rows":[
			{"store_name":"아크테릭스 부산점","usable_stock":4},
			{"store_name":"아크테릭스 종로점","usable_stock":"?"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	rows, err := c.Lookup(context.Background(), "12345")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "아크테릭스 부산점", rows[0].StoreName)
	n, ok := rows[0].Stock.Count()
	assert.True(t, ok)
	assert.Equal(t, 4, n)
	_, ok = rows[1].Stock.Count()
	assert.False(t, ok)
}

func TestLookupUnsuccessfulAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("product_option_id") {
		case "1":
			_, _ = w.Write([]byte(`{"success":false}`))
		case "2":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)

	rows, err := c.Lookup(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = c.Lookup(context.Background(), "2")
	assert.Error(t, err)

	_, err = c.Lookup(context.Background(), "3")
	assert.Error(t, err)
}

func TestSearchProductIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/search", r.URL.Path)
		assert.Equal(t, "Beta SL", r.URL.Query().Get("search_keyword"))
		if r.URL.Query().Get("f_gender[]") != "" {
			_, _ = w.Write([]byte(`{"success":true,"data":{"rows":[{"product_id":101},{"product_id":102}]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"rows":[{"product_id":900}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)

	ids, err := c.SearchProductIDs(context.Background(), "Beta SL", catalog.GenderMale)
	require.NoError(t, err)
	assert.Equal(t, []string{"101", "102"}, ids)

	ids, err = c.SearchProductIDs(context.Background(), "Beta SL", catalog.GenderBackpack)
	require.NoError(t, err)
	assert.Equal(t, []string{"900"}, ids)
}
