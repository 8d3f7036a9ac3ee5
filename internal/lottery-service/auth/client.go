package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity é o contrato consumido do provedor de identidade: quem é o caller,
// se é admin e a chave PIX cadastrada (destino de saque).
type Identity struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
	PixKey  string `json:"pix_key"`
}

// Client fala com o provedor de identidade externo via HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Verify resolve o token do caller em uma Identity.
// 401/403 do provedor viram ErrUnauthorized.
func (c *Client) Verify(ctx context.Context, authorization string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/verify", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", authorization)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth verify: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("auth verify http %d", res.StatusCode)
	}

	var out Identity
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.UserID == "" {
		return nil, ErrUnauthorized
	}
	return &out, nil
}
