package dto

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ContestResponse struct {
	ID                  string     `json:"id"`
	MonthYear           string     `json:"month_year"`
	Status              string     `json:"status"`
	BetPriceCents       int64      `json:"bet_price_cents"`
	ClosingDate         time.Time  `json:"closing_date"`
	TotalCollectedCents int64      `json:"total_collected_cents"`
	NumBets             int        `json:"num_bets"`
	WinningNumbers      []int64    `json:"winning_numbers,omitempty"`
	CarryoverCents      int64      `json:"carryover_cents,omitempty"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
}

type BetResponse struct {
	ID            string    `json:"id"`
	ContestID     string    `json:"contest_id"`
	ChosenNumbers []int64   `json:"chosen_numbers,omitempty"`
	AmountCents   int64     `json:"amount_cents"`
	Hits          *int      `json:"hits,omitempty"`
	PrizeCents    *int64    `json:"prize_cents,omitempty"`
	PrizePaid     bool      `json:"prize_paid"`
	CreatedAt     time.Time `json:"created_at"`
}

type PlaceBetResponse struct {
	BetID           string  `json:"bet_id"`
	ChosenNumbers   []int64 `json:"chosen_numbers"`
	AmountCents     int64   `json:"amount_cents"`
	NewBalanceCents int64   `json:"new_balance_cents"`
}

type WalletResponse struct {
	UserID       string `json:"user_id"`
	BalanceCents int64  `json:"balance_cents"`
}

type TransactionResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description,omitempty"`
	PaymentID   string    `json:"payment_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type WithdrawalApprovalResponse struct {
	Transaction     TransactionResponse `json:"transaction"`
	NewBalanceCents int64               `json:"new_balance_cents"`
}

type DepositResponse struct {
	TransactionID string `json:"transaction_id"`
	PaymentID     string `json:"payment_id"`
	QRCode        string `json:"qr_code"`
	TicketURL     string `json:"ticket_url,omitempty"`
	AmountCents   int64  `json:"amount_cents"`
	Status        string `json:"status"` // sempre "pending" na criação
}

type SettlementResponse struct {
	ContestID       string               `json:"contest_id"`
	WinningNumbers  []int64              `json:"winning_numbers"`
	Winners6        int                  `json:"winners6"`
	Winners5        int                  `json:"winners5"`
	HadWinners      bool                 `json:"had_winners"`
	PrizeValueCents int64                `json:"prize_value_cents"`
	CarryoverCents  int64                `json:"carryover_cents"`
	PaidPayouts     int                  `json:"paid_payouts"`
	FailedPayouts   []FailedPayoutDetail `json:"failed_payouts,omitempty"`
}

type FailedPayoutDetail struct {
	BetID       string `json:"bet_id"`
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

type ReconcileResponse struct {
	ContestID     string               `json:"contest_id"`
	Attempted     int                  `json:"attempted"`
	Paid          int                  `json:"paid"`
	FailedPayouts []FailedPayoutDetail `json:"failed_payouts,omitempty"`
}

type TierConfigResponse struct {
	HouseSharePct    int       `json:"house_share_pct"`
	SixHitsSharePct  int       `json:"six_hits_share_pct"`
	FiveHitsSharePct int       `json:"five_hits_share_pct"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type WebhookAckResponse struct {
	Received bool `json:"received"`
}
