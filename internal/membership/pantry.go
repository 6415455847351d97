package membership

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/zapcooking/backend/internal/models"
)

// PantryClient talks to the external members API. Calls run through a
// circuit breaker so a dead pantry fails fast instead of tying up
// payment requests.
type PantryClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

func NewPantryClient(baseURL string, apiKey string) *PantryClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "pantry-members-api",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &PantryClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		cb:      cb,
	}
}

func (c *PantryClient) do(ctx context.Context, method string, path string, body []byte, out interface{}) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("error building members API request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("members API request failed: %w", err)
		}
		defer res.Body.Close()

		if res.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("members API responded %d", res.StatusCode)
		}

		if out != nil {
			if err := json.NewDecoder(res.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("error decoding members API response: %w", err)
			}
		}

		return nil, nil
	})

	return err
}

// PutMember upserts a member record after a verified payment.
func (c *PantryClient) PutMember(ctx context.Context, member models.Member) error {
	body, err := json.Marshal(member)
	if err != nil {
		return fmt.Errorf("error encoding member record: %w", err)
	}

	return c.do(ctx, http.MethodPost, "/members", body, nil)
}

// GetMember reads the current membership state for a pubkey.
func (c *PantryClient) GetMember(ctx context.Context, pubkey string) (*models.MembershipState, error) {
	var state models.MembershipState
	if err := c.do(ctx, http.MethodGet, "/members/"+pubkey, nil, &state); err != nil {
		return nil, err
	}

	return &state, nil
}
