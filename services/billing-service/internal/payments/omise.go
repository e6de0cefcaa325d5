// Package payments wraps the Omise gateway for card payments against
// generated invoices.
package payments

import (
	"fmt"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

type Client struct {
	omc *omise.Client
}

func NewClient(pubKey, secretKey string) (*Client, error) {
	omc, err := omise.NewClient(pubKey, secretKey)
	if err != nil {
		return nil, err
	}
	omc.SetDebug(false)
	return &Client{omc: omc}, nil
}

type ChargeResult struct {
	ChargeID       string
	Paid           bool
	FailureCode    string
	FailureMessage string
}

// ChargeCard charges amount (in the currency's smallest unit) against a
// tokenized card. The booking id travels in the charge metadata so the
// webhook can route the result back to the invoice.
func (c *Client) ChargeCard(bookingID string, amount int64, currency, cardToken string) (*ChargeResult, error) {
	if amount <= 0 || cardToken == "" || currency == "" {
		return nil, fmt.Errorf("invalid charge params")
	}
	ch := &omise.Charge{}
	req := &operations.CreateCharge{
		Amount:   amount,
		Currency: currency,
		Card:     cardToken,
		Metadata: map[string]any{"booking_id": bookingID},
	}
	if err := c.omc.Do(ch, req); err != nil {
		return nil, err
	}

	out := &ChargeResult{ChargeID: ch.ID, Paid: string(ch.Status) == "successful"}
	if ch.FailureCode != nil {
		out.FailureCode = *ch.FailureCode
	}
	if ch.FailureMessage != nil {
		out.FailureMessage = *ch.FailureMessage
	}
	return out, nil
}

// VerifyEvent re-fetches a webhook event from Omise so the payload cannot
// be forged, and returns the embedded charge for charge.complete events.
func (c *Client) VerifyEvent(eventID string) (*omise.Event, error) {
	ev := &omise.Event{}
	if err := c.omc.Do(ev, &operations.RetrieveEvent{EventID: eventID}); err != nil {
		return nil, err
	}
	return ev, nil
}
