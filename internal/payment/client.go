package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spraylab/streetshop/internal/models"
)

// Client talks to the Snap-style gateway API that issues transaction
// tokens for the hosted payment page.
type Client struct {
	ServerKey string
	BaseURL   string
	HTTP      *http.Client
}

func NewClient(serverKey, baseURL string) *Client {
	return &Client{
		ServerKey: serverKey,
		BaseURL:   baseURL,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
	}
}

type Transaction struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type customerDetails struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
}

type transactionDetails struct {
	OrderID     string  `json:"order_id"`
	GrossAmount float64 `json:"gross_amount"`
}

// CreateTransaction registers the order with the gateway and returns
// the token the client redirects to. A gateway failure leaves the
// order UNPAID; the expiry sweep reclaims its stock if the customer
// never retries.
func (c *Client) CreateTransaction(ctx context.Context, order *models.Order, customer *models.User) (*Transaction, error) {
	payload := map[string]any{
		"transaction_details": transactionDetails{
			OrderID:     order.ID,
			GrossAmount: order.Total,
		},
		"customer_details": customerDetails{
			FirstName: customer.Username,
			Email:     customer.Email,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/snap/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.ServerKey+":")))

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("payment gateway: unexpected status %s", res.Status)
	}

	var tx Transaction
	if err := json.NewDecoder(res.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("payment gateway: decode response: %w", err)
	}
	return &tx, nil
}
