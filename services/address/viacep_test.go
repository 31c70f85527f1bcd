package address

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"nahio/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/01001000/json/":
			_, _ = w.Write([]byte(`{"cep":"01001-000","logradouro":"Praça da Sé","complemento":"lado ímpar","bairro":"Sé","localidade":"São Paulo","uf":"SP"}`))
		case "/99999999/json/":
			_, _ = w.Write([]byte(`{"erro": "true"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupAndCache(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	client := NewClient(srv.URL+"/", utils.NewMemoryKV(), nil)

	addr, err := client.Lookup(context.Background(), "01001-000")
	require.NoError(t, err)
	assert.Equal(t, "01001000", addr.CEP)
	assert.Equal(t, "Praça da Sé", addr.Street)
	assert.Equal(t, "Sé", addr.District)
	assert.Equal(t, "São Paulo", addr.City)
	assert.Equal(t, "SP", addr.State)

	again, err := client.Lookup(context.Background(), "01001000")
	require.NoError(t, err)
	assert.Equal(t, addr, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLookupUnknownAndInvalid(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	client := NewClient(srv.URL, nil, nil)

	_, err := client.Lookup(context.Background(), "99999-999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Lookup(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrInvalidCEP)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "malformed CEPs never reach the network")
}
