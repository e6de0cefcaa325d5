// Package clients holds the gateway's HTTP clients for the backing
// services. The gateway relays JSON bodies and status codes; it does not
// reinterpret service responses.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

type ServiceClient struct {
	baseURL string
	hc      *http.Client
}

func newServiceClient(baseURL string) *ServiceClient {
	return &ServiceClient{baseURL: baseURL, hc: &http.Client{Timeout: 15 * time.Second}}
}

// Do sends a JSON request to the service and returns the raw response.
// body may be nil.
func (c *ServiceClient) Do(ctx context.Context, method, path string, body any) (int, json.RawMessage, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, err
	}
	return res.StatusCode, raw, nil
}

type Clients struct {
	Booking    *ServiceClient
	Technician *ServiceClient
	Billing    *ServiceClient
}

func New(bookingURL, technicianURL, billingURL string) *Clients {
	return &Clients{
		Booking:    newServiceClient(bookingURL),
		Technician: newServiceClient(technicianURL),
		Billing:    newServiceClient(billingURL),
	}
}
