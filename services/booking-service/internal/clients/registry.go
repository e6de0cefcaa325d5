// Package clients holds the booking service's outbound HTTP clients. All
// calls carry a bounded timeout; a 5xx or transport error is wrapped as
// ErrUnavailable so callers can tell retriable failures apart.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	ErrTechnicianNotFound = errors.New("technician_not_found")
	ErrUnavailable        = errors.New("service_unavailable")
)

const callTimeout = 10 * time.Second

// RegistryClient talks to the technician service.
type RegistryClient struct {
	baseURL string
	hc      *http.Client
}

func NewRegistryClient(baseURL string) *RegistryClient {
	return &RegistryClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: callTimeout},
	}
}

func (c *RegistryClient) MarkBusy(ctx context.Context, technicianID string) error {
	return c.post(ctx, fmt.Sprintf("%s/v1/technicians/%s/busy", c.baseURL, technicianID))
}

func (c *RegistryClient) MarkAvailable(ctx context.Context, technicianID string) error {
	return c.post(ctx, fmt.Sprintf("%s/v1/technicians/%s/available", c.baseURL, technicianID))
}

func (c *RegistryClient) post(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return nil
	case res.StatusCode == http.StatusNotFound:
		return ErrTechnicianNotFound
	case res.StatusCode >= 500:
		return fmt.Errorf("%w: registry returned %d", ErrUnavailable, res.StatusCode)
	default:
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("registry returned %d: %s", res.StatusCode, string(body))
	}
}

func postJSON(ctx context.Context, hc *http.Client, url string, in any) (*http.Response, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return hc.Do(req)
}
