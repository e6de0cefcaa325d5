package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// BillingClient requests invoice generation from the billing service.
// Generation is idempotent on the billing side; calling it for a booking
// that already has an invoice is a no-op there.
type BillingClient struct {
	baseURL string
	hc      *http.Client
}

func NewBillingClient(baseURL string) *BillingClient {
	return &BillingClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: callTimeout},
	}
}

type generateInvoiceRequest struct {
	BookingID   string `json:"booking_id"`
	CustomerID  string `json:"customer_id"`
	ServiceName string `json:"service_name"`
}

func (c *BillingClient) GenerateIfAbsent(ctx context.Context, bookingID, customerID, serviceName string) error {
	res, err := postJSON(ctx, c.hc, c.baseURL+"/v1/invoices/generate", generateInvoiceRequest{
		BookingID:   bookingID,
		CustomerID:  customerID,
		ServiceName: serviceName,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	if res.StatusCode >= 500 {
		return fmt.Errorf("%w: billing returned %d", ErrUnavailable, res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("billing returned %d: %s", res.StatusCode, string(body))
}
