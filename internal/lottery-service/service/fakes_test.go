package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/lottery-service/payment"
	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
)

// Fakes em memória dos stores. Sem locks: os testes são sequenciais e a
// concorrência real é exercida nos fakes via filas de erro injetado.

type fakeWallets struct {
	balances map[string]int64

	// conflictsLeft injeta ErrConcurrencyConflict nos próximos N débitos.
	conflictsLeft int
	failCredit    error
	failDebit     error

	credits int
	debits  int
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{balances: make(map[string]int64)}
}

func (f *fakeWallets) GetOrCreate(_ context.Context, userID string) (*repo.Wallet, error) {
	if _, ok := f.balances[userID]; !ok {
		f.balances[userID] = 0
	}
	return &repo.Wallet{UserID: userID, BalanceCents: f.balances[userID]}, nil
}

func (f *fakeWallets) Get(_ context.Context, userID string) (*repo.Wallet, error) {
	b, ok := f.balances[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &repo.Wallet{UserID: userID, BalanceCents: b}, nil
}

func (f *fakeWallets) Credit(_ context.Context, userID string, amountCents int64) (int64, error) {
	if f.failCredit != nil {
		return 0, f.failCredit
	}
	f.credits++
	f.balances[userID] += amountCents
	return f.balances[userID], nil
}

func (f *fakeWallets) Debit(_ context.Context, userID string, amountCents int64) (int64, error) {
	if f.failDebit != nil {
		return 0, f.failDebit
	}
	if f.balances[userID] < amountCents {
		return 0, repo.ErrInsufficientFunds
	}
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return 0, repo.ErrConcurrencyConflict
	}
	f.debits++
	f.balances[userID] -= amountCents
	return f.balances[userID], nil
}

type fakeContests struct {
	byID      map[string]*repo.Contest
	carryover int64
}

func newFakeContests(cs ...*repo.Contest) *fakeContests {
	f := &fakeContests{byID: make(map[string]*repo.Contest)}
	for _, c := range cs {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeContests) Get(_ context.Context, id string) (*repo.Contest, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContests) GetOpen(_ context.Context) (*repo.Contest, error) {
	for _, c := range f.byID {
		if c.Status == repo.ContestOpen {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeContests) Create(_ context.Context, c *repo.Contest) (string, error) {
	for _, ex := range f.byID {
		if ex.Status == repo.ContestOpen {
			return "", repo.ErrOpenContestExists
		}
	}
	id := fmt.Sprintf("contest-%d", len(f.byID)+1)
	cp := *c
	cp.ID = id
	f.byID[id] = &cp
	return id, nil
}

func (f *fakeContests) CloseIfOpen(_ context.Context, id string, winning []int64) error {
	c, ok := f.byID[id]
	if !ok || c.Status != repo.ContestOpen {
		return repo.ErrContestNotOpen
	}
	now := time.Now()
	c.Status = repo.ContestClosed
	c.WinningNumbers = winning
	c.ClosedAt = &now
	return nil
}

func (f *fakeContests) AddCollected(_ context.Context, id string, amountCents int64) error {
	c, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	c.TotalCollectedCents += amountCents
	c.NumBets++
	return nil
}

func (f *fakeContests) RecordCarryover(_ context.Context, id string, carryoverCents int64) error {
	c, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	c.CarryoverCents = carryoverCents
	f.carryover = carryoverCents
	return nil
}

func (f *fakeContests) LastCarryover(_ context.Context) (int64, error) {
	return f.carryover, nil
}

type fakeBets struct {
	bets       []*repo.Bet
	contests   *fakeContests
	failInsert error
	nextID     int
	deleted    []string
}

func (f *fakeBets) Insert(_ context.Context, b *repo.Bet) (string, error) {
	if f.failInsert != nil {
		return "", f.failInsert
	}
	// Espelha a guarda do INSERT condicional: aposta só entra com o concurso
	// ainda aberto no store, independente do que o chamador leu antes.
	if f.contests != nil {
		c, ok := f.contests.byID[b.ContestID]
		if !ok || c.Status != repo.ContestOpen {
			return "", repo.ErrContestNotOpen
		}
	}
	for _, ex := range f.bets {
		if ex.ContestID == b.ContestID && ex.UserID == b.UserID {
			return "", repo.ErrDuplicateBet
		}
	}
	f.nextID++
	cp := *b
	cp.ID = "bet-" + strconv.Itoa(f.nextID)
	f.bets = append(f.bets, &cp)
	return cp.ID, nil
}

func (f *fakeBets) Delete(_ context.Context, betID string) error {
	for i, b := range f.bets {
		if b.ID == betID {
			f.bets = append(f.bets[:i], f.bets[i+1:]...)
			f.deleted = append(f.deleted, betID)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeBets) ListByContest(_ context.Context, contestID string) ([]repo.Bet, error) {
	var out []repo.Bet
	for _, b := range f.bets {
		if b.ContestID == contestID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBets) ListByUser(_ context.Context, userID string, limit int) ([]repo.Bet, error) {
	var out []repo.Bet
	for _, b := range f.bets {
		if b.UserID == userID && len(out) < limit {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBets) find(betID string) *repo.Bet {
	for _, b := range f.bets {
		if b.ID == betID {
			return b
		}
	}
	return nil
}

func (f *fakeBets) SetHits(_ context.Context, betID string, hits int) error {
	b := f.find(betID)
	if b == nil {
		return repo.ErrNotFound
	}
	b.Hits = &hits
	return nil
}

func (f *fakeBets) SetPrizeDue(_ context.Context, betID string, prizeCents int64) error {
	b := f.find(betID)
	if b == nil {
		return repo.ErrNotFound
	}
	b.PrizeCents = &prizeCents
	return nil
}

func (f *fakeBets) MarkPrizePaid(_ context.Context, betID string) error {
	b := f.find(betID)
	if b == nil {
		return repo.ErrNotFound
	}
	b.PrizePaid = true
	return nil
}

func (f *fakeBets) UnpaidWinners(_ context.Context, contestID string) ([]repo.Bet, error) {
	var out []repo.Bet
	for _, b := range f.bets {
		if b.ContestID == contestID && b.Hits != nil && *b.Hits >= 5 && !b.PrizePaid {
			out = append(out, *b)
		}
	}
	return out, nil
}

type fakeTxs struct {
	txs    []*repo.Transaction
	nextID int

	// failInsertFor injeta erro no Insert de transações deste tipo.
	failInsertFor  string
	failInsertErr  error
	failCompleteN  int // falha as próximas N chamadas de CompleteDeposit
	completeDepErr error
}

func (f *fakeTxs) Insert(_ context.Context, t *repo.Transaction) (string, error) {
	if f.failInsertFor != "" && t.Type == f.failInsertFor {
		return "", f.failInsertErr
	}
	if t.PaymentID != "" {
		for _, ex := range f.txs {
			if ex.PaymentID == t.PaymentID {
				return "", repo.ErrDuplicatePayment
			}
		}
	}
	f.nextID++
	cp := *t
	cp.ID = "tx-" + strconv.Itoa(f.nextID)
	cp.CreatedAt = time.Now()
	f.txs = append(f.txs, &cp)
	return cp.ID, nil
}

func (f *fakeTxs) Get(_ context.Context, id string) (*repo.Transaction, error) {
	for _, t := range f.txs {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeTxs) ListByUser(_ context.Context, userID string, limit int) ([]repo.Transaction, error) {
	var out []repo.Transaction
	for _, t := range f.txs {
		if t.UserID == userID && len(out) < limit {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTxs) HasPendingWithdrawal(_ context.Context, userID string) (bool, error) {
	for _, t := range f.txs {
		if t.UserID == userID && t.Type == repo.TxWithdrawal && t.Status == repo.TxPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTxs) UpdateStatusIfPending(_ context.Context, id, newStatus, description string) error {
	for _, t := range f.txs {
		if t.ID == id {
			if t.Status != repo.TxPending {
				return repo.ErrTxNotPending
			}
			t.Status = newStatus
			if description != "" {
				t.Description = description
			}
			return nil
		}
	}
	return repo.ErrTxNotPending
}

func (f *fakeTxs) CompletedPaymentExists(_ context.Context, paymentID string) (bool, error) {
	for _, t := range f.txs {
		if t.PaymentID == paymentID && t.Status == repo.TxCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTxs) CompleteDeposit(_ context.Context, userID, paymentID string, amountCents int64, description string) error {
	if f.failCompleteN > 0 {
		f.failCompleteN--
		return f.completeDepErr
	}
	for _, t := range f.txs {
		if t.PaymentID == paymentID {
			if t.Status == repo.TxCompleted {
				return repo.ErrDuplicatePayment
			}
			t.Status = repo.TxCompleted
			return nil
		}
	}
	f.nextID++
	f.txs = append(f.txs, &repo.Transaction{
		ID:          "tx-" + strconv.Itoa(f.nextID),
		UserID:      userID,
		Type:        repo.TxDeposit,
		Status:      repo.TxCompleted,
		AmountCents: amountCents,
		Description: description,
		PaymentID:   paymentID,
	})
	return nil
}

// byType filtra transações registradas por tipo, na ordem de inserção.
func (f *fakeTxs) byType(typ string) []*repo.Transaction {
	var out []*repo.Transaction
	for _, t := range f.txs {
		if t.Type == typ {
			out = append(out, t)
		}
	}
	return out
}

// fakeCache guarda cópias dos concursos como o Redis guardaria: uma entrada
// escrita antes do fechamento continua "aberta" até ser invalidada ou expirar.
type fakeCache struct {
	byID        map[string]repo.Contest
	open        *repo.Contest
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{byID: make(map[string]repo.Contest)}
}

func (f *fakeCache) Get(_ context.Context, contestID string, dst any) (bool, error) {
	c, ok := f.byID[contestID]
	if !ok {
		return false, nil
	}
	*dst.(*repo.Contest) = c
	return true, nil
}

func (f *fakeCache) Set(_ context.Context, contestID string, v any) error {
	f.byID[contestID] = *v.(*repo.Contest)
	return nil
}

func (f *fakeCache) GetOpen(_ context.Context, dst any) (bool, error) {
	if f.open == nil {
		return false, nil
	}
	*dst.(*repo.Contest) = *f.open
	return true, nil
}

func (f *fakeCache) SetOpen(_ context.Context, v any) error {
	c := *v.(*repo.Contest)
	f.open = &c
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, contestID string) error {
	delete(f.byID, contestID)
	f.open = nil
	f.invalidated = append(f.invalidated, contestID)
	return nil
}

type fakePayments struct {
	fail    error
	charges int
}

func (f *fakePayments) CreateCharge(_ context.Context, userID string, amountCents int64, description string) (*payment.Charge, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.charges++
	return &payment.Charge{
		PaymentID:   fmt.Sprintf("pix-%d", f.charges),
		QRCode:      "00020126...fake",
		AmountCents: amountCents,
		Status:      payment.StatusPending,
		ExpiresAt:   time.Now().Add(30 * time.Minute),
	}, nil
}

type fakeTiers struct {
	cfg     repo.TierConfig
	updated []repo.TierConfig
}

func newFakeTiers() *fakeTiers {
	return &fakeTiers{cfg: repo.TierConfig{HouseSharePct: 20, SixHitsSharePct: 80, FiveHitsSharePct: 20}}
}

func (f *fakeTiers) Current(_ context.Context) (*repo.TierConfig, error) {
	cp := f.cfg
	return &cp, nil
}

func (f *fakeTiers) Update(_ context.Context, tc *repo.TierConfig) error {
	f.cfg = *tc
	f.updated = append(f.updated, *tc)
	return nil
}

type testEnv struct {
	svc      *Service
	wallets  *fakeWallets
	contests *fakeContests
	bets     *fakeBets
	txs      *fakeTxs
	tiers    *fakeTiers
	cache    *fakeCache
	payments *fakePayments
	now      time.Time
}

func newTestEnv(cs ...*repo.Contest) *testEnv {
	env := &testEnv{
		wallets:  newFakeWallets(),
		contests: newFakeContests(cs...),
		bets:     &fakeBets{},
		txs:      &fakeTxs{},
		tiers:    newFakeTiers(),
		cache:    newFakeCache(),
		payments: &fakePayments{},
		now:      time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	env.bets.contests = env.contests
	env.svc = New(Deps{
		Log:      zap.NewNop(),
		Wallets:  env.wallets,
		Contests: env.contests,
		Bets:     env.bets,
		Txs:      env.txs,
		Tiers:    env.tiers,
		Cache:    env.cache,
		Payments: env.payments,
		Now:      func() time.Time { return env.now },
	})
	return env
}

func openContest(id string, priceCents int64) *repo.Contest {
	return &repo.Contest{
		ID:            id,
		MonthYear:     "Janeiro 2026",
		Status:        repo.ContestOpen,
		BetPriceCents: priceCents,
		ClosingDate:   time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC),
	}
}
