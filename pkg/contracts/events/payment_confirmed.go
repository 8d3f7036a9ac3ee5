package events

// Evento publicado no tópico "payment_confirmed" a partir do webhook do
// provedor PIX, já normalizado pelo lottery-service.
type PaymentConfirmed struct {
	PaymentID   string `json:"payment_id"`
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	// Status normalizado: "approved" | "pending" | "rejected" | "unknown"
	Status   string `json:"status"`
	Provider string `json:"provider"` // ex: "pix-simulator", "mercado-pago"
	TsUnixMs int64  `json:"ts_unix_ms"`
}
