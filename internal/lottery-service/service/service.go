package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/lottery-service/payment"
	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
	"github.com/radieske/bolao-platform/pkg/contracts/events"
)

// Caller é a identidade resolvida pelo provedor externo de autenticação.
// O serviço nunca fala com o provedor diretamente; recebe o resultado.
type Caller struct {
	ID     string
	Admin  bool
	PixKey string
}

// WalletStore é o razão de carteiras (repo.Wallets).
type WalletStore interface {
	GetOrCreate(ctx context.Context, userID string) (*repo.Wallet, error)
	Get(ctx context.Context, userID string) (*repo.Wallet, error)
	Credit(ctx context.Context, userID string, amountCents int64) (int64, error)
	Debit(ctx context.Context, userID string, amountCents int64) (int64, error)
}

type ContestStore interface {
	Get(ctx context.Context, id string) (*repo.Contest, error)
	GetOpen(ctx context.Context) (*repo.Contest, error)
	Create(ctx context.Context, c *repo.Contest) (string, error)
	CloseIfOpen(ctx context.Context, id string, winning []int64) error
	AddCollected(ctx context.Context, id string, amountCents int64) error
	RecordCarryover(ctx context.Context, id string, carryoverCents int64) error
	LastCarryover(ctx context.Context) (int64, error)
}

type BetStore interface {
	Insert(ctx context.Context, b *repo.Bet) (string, error)
	Delete(ctx context.Context, betID string) error
	ListByContest(ctx context.Context, contestID string) ([]repo.Bet, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]repo.Bet, error)
	SetHits(ctx context.Context, betID string, hits int) error
	SetPrizeDue(ctx context.Context, betID string, prizeCents int64) error
	MarkPrizePaid(ctx context.Context, betID string) error
	UnpaidWinners(ctx context.Context, contestID string) ([]repo.Bet, error)
}

type TransactionStore interface {
	Insert(ctx context.Context, t *repo.Transaction) (string, error)
	Get(ctx context.Context, id string) (*repo.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]repo.Transaction, error)
	HasPendingWithdrawal(ctx context.Context, userID string) (bool, error)
	UpdateStatusIfPending(ctx context.Context, id, newStatus, description string) error
	CompletedPaymentExists(ctx context.Context, paymentID string) (bool, error)
	CompleteDeposit(ctx context.Context, userID, paymentID string, amountCents int64, description string) error
}

type TierStore interface {
	Current(ctx context.Context) (*repo.TierConfig, error)
	Update(ctx context.Context, tc *repo.TierConfig) error
}

// ContestCache é opcional; sem cache o serviço lê direto do banco.
type ContestCache interface {
	Get(ctx context.Context, contestID string, dst any) (bool, error)
	Set(ctx context.Context, contestID string, v any) error
	GetOpen(ctx context.Context, dst any) (bool, error)
	SetOpen(ctx context.Context, v any) error
	Invalidate(ctx context.Context, contestID string) error
}

// Notifier é o sink best-effort de notificações.
type Notifier interface {
	Notify(ctx context.Context, n events.Notification)
	ContestSettled(ctx context.Context, ev events.ContestSettled)
}

// PaymentProvider emite cobranças PIX.
type PaymentProvider interface {
	CreateCharge(ctx context.Context, userID string, amountCents int64, description string) (*payment.Charge, error)
}

// Deps agrupa as dependências do serviço. Cache, Notifier e Payments são
// opcionais (o worker de confirmação só usa carteiras e transações).
type Deps struct {
	Log      *zap.Logger
	Wallets  WalletStore
	Contests ContestStore
	Bets     BetStore
	Txs      TransactionStore
	Tiers    TierStore
	Cache    ContestCache
	Notifier Notifier
	Payments PaymentProvider

	MinDepositCents    int64
	MinWithdrawalCents int64

	// Now permite congelar o relógio em teste.
	Now func() time.Time
}

// Service concentra a lógica de negócio do bolão: colocação de apostas,
// encerramento de concursos, saques e crédito de depósitos.
type Service struct {
	log      *zap.Logger
	wallets  WalletStore
	contests ContestStore
	bets     BetStore
	txs      TransactionStore
	tiers    TierStore
	cache    ContestCache
	notifier Notifier
	payments PaymentProvider

	minDepositCents    int64
	minWithdrawalCents int64
	now                func() time.Time
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MinDepositCents == 0 {
		d.MinDepositCents = 500
	}
	if d.MinWithdrawalCents == 0 {
		d.MinWithdrawalCents = 1000
	}
	return &Service{
		log:      d.Log,
		wallets:  d.Wallets,
		contests: d.Contests,
		bets:     d.Bets,
		txs:      d.Txs,
		tiers:    d.Tiers,
		cache:    d.Cache,
		notifier: d.Notifier,
		payments: d.Payments,

		minDepositCents:    d.MinDepositCents,
		minWithdrawalCents: d.MinWithdrawalCents,
		now:                d.Now,
	}
}

// Débito com tolerância a conflito otimista: repete algumas vezes e devolve
// o conflito ao chamador se a corrida persistir.
const debitRetries = 3

func (s *Service) debitWithRetry(ctx context.Context, userID string, amountCents int64) (int64, error) {
	var newBalance int64
	var err error
	for i := 0; i < debitRetries; i++ {
		newBalance, err = s.wallets.Debit(ctx, userID, amountCents)
		if !errors.Is(err, repo.ErrConcurrencyConflict) {
			return newBalance, err
		}
	}
	return 0, err
}

func (s *Service) notify(ctx context.Context, n events.Notification) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, n)
	}
}
