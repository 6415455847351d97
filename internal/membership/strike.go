package membership

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// StrikeClient talks to the Strike receive-request API for Lightning
// invoices.
type StrikeClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewStrikeClient(baseURL string, apiKey string) *StrikeClient {
	return &StrikeClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type ReceiveRequest struct {
	ReceiveRequestID string `json:"receiveRequestId"`
	Invoice          string `json:"invoice"`
	PaymentHash      string `json:"paymentHash"`
}

type strikeCreateReq struct {
	Bolt11 struct {
		Amount struct {
			Currency string `json:"currency"`
			Amount   string `json:"amount"`
		} `json:"amount"`
		Description string `json:"description"`
	} `json:"bolt11"`
}

type strikeCreateRes struct {
	ReceiveRequestID string `json:"receiveRequestId"`
	Bolt11           struct {
		Invoice     string `json:"invoice"`
		PaymentHash string `json:"paymentHash"`
	} `json:"bolt11"`
}

func (c *StrikeClient) do(ctx context.Context, method string, path string, body []byte, out interface{}) error {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error building strike request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("strike request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("strike responded %d", res.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("error decoding strike response: %w", err)
		}
	}

	return nil
}

// CreateReceiveRequest issues a BOLT11 invoice for the given amount.
func (c *StrikeClient) CreateReceiveRequest(ctx context.Context, amountSats int64, description string) (*ReceiveRequest, error) {
	var payload strikeCreateReq
	payload.Bolt11.Amount.Currency = "BTC"
	payload.Bolt11.Amount.Amount = fmt.Sprintf("%.8f", float64(amountSats)/1e8)
	payload.Bolt11.Description = description

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding receive request: %w", err)
	}

	var res strikeCreateRes
	if err := c.do(ctx, http.MethodPost, "/receive-requests", body, &res); err != nil {
		return nil, err
	}

	return &ReceiveRequest{
		ReceiveRequestID: res.ReceiveRequestID,
		Invoice:          res.Bolt11.Invoice,
		PaymentHash:      res.Bolt11.PaymentHash,
	}, nil
}

type strikeReceivesRes struct {
	Items []struct {
		State string `json:"state"`
	} `json:"items"`
}

// IsPaid reports whether the receive request has a completed receive.
func (c *StrikeClient) IsPaid(ctx context.Context, receiveRequestID string) (bool, error) {
	var res strikeReceivesRes
	if err := c.do(ctx, http.MethodGet, "/receive-requests/"+receiveRequestID+"/receives", nil, &res); err != nil {
		return false, err
	}

	for _, item := range res.Items {
		if item.State == "COMPLETED" {
			return true, nil
		}
	}

	return false, nil
}
