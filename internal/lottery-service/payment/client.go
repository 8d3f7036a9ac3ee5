package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Status canônico de uma cobrança, independente do vocabulário do provedor.
const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusRejected = "rejected"
	StatusUnknown  = "unknown"
)

// Charge é a cobrança PIX emitida pelo provedor: referência externa mais o
// payload pagável (código copia-e-cola) apresentado ao usuário.
type Charge struct {
	PaymentID   string    `json:"payment_id"`
	QRCode      string    `json:"qr_code"` // código copia-e-cola
	TicketURL   string    `json:"ticket_url,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type chargeRequest struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	WebhookURL  string `json:"webhook_url"`
}

// Client fala com o provedor de pagamento PIX (em local, o pix-simulator).
type Client struct {
	BaseURL    string
	WebhookURL string
	HTTP       *http.Client
}

func New(base, webhookURL string) *Client {
	return &Client{
		BaseURL:    base,
		WebhookURL: webhookURL,
		HTTP:       &http.Client{Timeout: 5 * time.Second},
	}
}

// CreateCharge cria uma cobrança PIX no provedor. Cada requisição leva uma
// X-Idempotency-Key própria, como exige a API do provedor.
func (c *Client) CreateCharge(ctx context.Context, userID string, amountCents int64, description string) (*Charge, error) {
	body, _ := json.Marshal(chargeRequest{
		UserID:      userID,
		AmountCents: amountCents,
		Description: description,
		WebhookURL:  c.WebhookURL,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pix create charge: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("pix create charge http %d", res.StatusCode)
	}

	var out Charge
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
