package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spraylab/streetshop/internal/models"
)

// Mailer sends transactional mail through a Resend-style REST API.
// A Mailer without an API key is a no-op so the service degrades
// gracefully when mail is not configured.
type Mailer struct {
	APIKey  string
	From    string
	BaseURL string
	HTTP    *http.Client
}

func New(apiKey, from string) *Mailer {
	return &Mailer{
		APIKey:  apiKey,
		From:    from,
		BaseURL: "https://api.resend.com",
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	if m == nil || m.APIKey == "" {
		return nil
	}

	payload := map[string]any{
		"from":    m.From,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.APIKey)

	res, err := m.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return fmt.Errorf("mailer: unexpected status %s", res.Status)
	}
	return nil
}

func PasswordResetBody(code string) string {
	return fmt.Sprintf(`<p>Your password reset code:</p>
<h2 style="letter-spacing:4px">%s</h2>
<p>The code expires in 15 minutes. If you did not request a reset, ignore this mail.</p>`, code)
}

func OrderPaidBody(order *models.Order) string {
	return fmt.Sprintf(`<p>Payment received for order <b>%s</b>.</p>
<p>Total: %.2f</p>
<p>We are packing it now. You will get another mail when it ships.</p>`, order.ID, order.Total)
}
