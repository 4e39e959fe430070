package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeStoreBody = `[
  {"id":1,"title":"Fjallraven - Foldsack No. 1 Backpack","price":109.95,"description":"Your perfect pack","category":"men's clothing","image":"https://fakestoreapi.com/img/81fPKd-2AYL._AC_SL1500_.jpg","rating":{"rate":3.9,"count":120}},
  {"id":2,"title":"Mens Casual Premium Slim Fit T-Shirts","price":22.3,"description":"Slim-fitting style","category":"men's clothing","image":"","rating":{"rate":4.1,"count":259}}
]`

func TestClientDecodesProductList(t *testing.T) {
	var accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(fakeStoreBody))
	}))
	defer srv.Close()

	products, err := NewClient(srv.URL, srv.Client()).FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "application/json", accept)
	assert.Equal(t, 1, products[0].ID)
	assert.Equal(t, "$109.95", products[0].DisplayPrice())
	assert.Equal(t, "$22.30", products[1].DisplayPrice())
	assert.Equal(t, 3.9, products[0].Rating.Rate)
	assert.Equal(t, 259, products[1].Rating.Count)
	assert.Equal(t, "/assets/placeholder.svg", products[1].ImageOrPlaceholder())
}

func TestClientFailureModes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		wantOp string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "oops", wantOp: OpStatus},
		{name: "object instead of array", status: http.StatusOK, body: `{"id":1}`, wantOp: OpDecode},
		{name: "html", status: http.StatusOK, body: "<html></html>", wantOp: OpDecode},
		{name: "null", status: http.StatusOK, body: "null", wantOp: OpDecode},
		{name: "wrong element types", status: http.StatusOK, body: `[{"id":"one"}]`, wantOp: OpDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, srv.Client()).FetchProducts(context.Background())
			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantOp, fe.Op)
			assert.Equal(t, srv.URL, fe.URL)
			assert.ErrorIs(t, err, ErrProductsUnavailable)
		})
	}
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).FetchProducts(context.Background())
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, OpRequest, fe.Op)
}

func TestCacheOverClientHitsNetworkOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(fakeStoreBody))
	}))
	defer srv.Close()

	cache := NewCache(NewClient(srv.URL, srv.Client()))
	for i := 0; i < 3; i++ {
		products, err := cache.Products(context.Background())
		require.NoError(t, err)
		require.Len(t, products, 2)
	}
	assert.EqualValues(t, 1, hits.Load())
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", nil)
	assert.Equal(t, DefaultProductsURL, c.URL())
}
