package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func TestRegistryClientStatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/technicians/t-ok/busy":
			w.WriteHeader(http.StatusOK)
		case "/v1/technicians/t-missing/available":
			http.Error(w, `{"error":"technician_not_found"}`, http.StatusNotFound)
		default:
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewRegistryClient(srv.URL)

	assert.NoError(t, c.MarkBusy(context.Background(), "t-ok"))
	assert.ErrorIs(t, c.MarkAvailable(context.Background(), "t-missing"), ErrTechnicianNotFound)
	assert.ErrorIs(t, c.MarkBusy(context.Background(), "t-broken"), ErrUnavailable)
}

func TestRegistryClientConnectionRefused(t *testing.T) {
	c := NewRegistryClient("http://127.0.0.1:1")
	err := c.MarkBusy(context.Background(), "t-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBillingClientGenerate(t *testing.T) {
	var got generateInvoiceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/invoices/generate", r.URL.Path)
		require.NoError(t, jsonDecode(r, &got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewBillingClient(srv.URL)
	err := c.GenerateIfAbsent(context.Background(), "BK-1", "cust-1", "AC Repair")
	require.NoError(t, err)
	assert.Equal(t, "BK-1", got.BookingID)
	assert.Equal(t, "cust-1", got.CustomerID)
	assert.Equal(t, "AC Repair", got.ServiceName)
}

func TestBillingClient5xxIsRetriable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewBillingClient(srv.URL)
	err := c.GenerateIfAbsent(context.Background(), "BK-1", "cust-1", "AC Repair")
	assert.ErrorIs(t, err, ErrUnavailable)
}
