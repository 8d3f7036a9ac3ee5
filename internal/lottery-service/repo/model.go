package repo

import "time"

// Status de concurso
const (
	ContestOpen   = "open"
	ContestClosed = "closed"
)

// Tipos de transação (ledger)
const (
	TxDeposit    = "deposit"
	TxWithdrawal = "withdrawal"
	TxBet        = "bet"
	TxPrize      = "prize"
)

// Status de transação
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxFailed    = "failed"
)

// Wallet é a carteira persistida no Postgres.
// version é o token de concorrência otimista: todo débito é condicionado
// à versão observada na leitura.
type Wallet struct {
	ID           string
	UserID       string
	BalanceCents int64
	Version      int64
}

// Contest é um concurso mensal do bolão.
type Contest struct {
	ID                  string
	MonthYear           string // rótulo livre, ex: "Janeiro 2026"
	Status              string // open | closed
	BetPriceCents       int64
	ClosingDate         time.Time
	TotalCollectedCents int64
	NumBets             int
	WinningNumbers      []int64 // nil enquanto aberto; 20 números ao fechar
	CarryoverCents      int64   // preenchido no encerramento quando não há ganhadores
	CreatedAt           time.Time
	ClosedAt            *time.Time
}

// Bet é uma aposta de 6 números em um concurso.
type Bet struct {
	ID            string
	ContestID     string
	UserID        string
	ChosenNumbers []int64 // sempre 6 números únicos 0..99, ordenados
	AmountCents   int64
	Hits          *int   // nil até o encerramento
	PrizeCents    *int64 // nil até o encerramento; valor devido quando ganhador
	PrizePaid     bool
	CreatedAt     time.Time
}

// Transaction é o ledger financeiro por usuário.
// PaymentID carrega a referência externa (PIX) ou a chave determinística de
// prêmio; a unicidade dela é a âncora de idempotência.
type Transaction struct {
	ID          string
	UserID      string
	Type        string
	Status      string
	AmountCents int64
	Description string
	PaymentID   string // vazio quando não se aplica
	CreatedAt   time.Time
}

// TierConfig são os percentuais de rateio definidos pelo admin.
// Invariante: SixHitsSharePct + FiveHitsSharePct == 100.
type TierConfig struct {
	HouseSharePct    int
	SixHitsSharePct  int
	FiveHitsSharePct int
	UpdatedAt        time.Time
}
