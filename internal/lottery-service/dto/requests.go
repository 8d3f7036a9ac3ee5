package dto

type PlaceBetRequest struct {
	ContestID string `json:"contest_id"`
	Numbers   []int  `json:"numbers"` // 6 números únicos 0..99
}

type CreateContestRequest struct {
	MonthYear     string `json:"month_year"` // rótulo, ex: "Janeiro 2026"
	BetPriceCents int64  `json:"bet_price_cents"`
	ClosingDate   string `json:"closing_date"` // RFC3339
}

type CloseContestRequest struct {
	WinningNumbers []int `json:"winning_numbers"` // 20 números únicos 0..99
}

type DepositRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description,omitempty"`
}

type WithdrawalRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type RejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

type UpdateTierConfigRequest struct {
	HouseSharePct    int `json:"house_share_pct"`
	SixHitsSharePct  int `json:"six_hits_share_pct"`
	FiveHitsSharePct int `json:"five_hits_share_pct"`
}

// PaymentWebhookRequest é o payload recebido do provedor PIX. O status vem no
// vocabulário do provedor e é normalizado antes de publicar no Kafka.
type PaymentWebhookRequest struct {
	PaymentID   string `json:"payment_id"`
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
	Provider    string `json:"provider,omitempty"`
}
