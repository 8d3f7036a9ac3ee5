package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Wallets implementa o razão de carteiras em banco.
// Débitos usam concorrência otimista (coluna version); créditos são
// incondicionais.
type Wallets struct{ db *sql.DB }

func NewWallets(db *sql.DB) *Wallets { return &Wallets{db: db} }

// GetOrCreate retorna a carteira de um usuário, criando-a zerada se não existir.
func (w *Wallets) GetOrCreate(ctx context.Context, userID string) (*Wallet, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	wal := &Wallet{UserID: userID}
	err = tx.QueryRowContext(ctx,
		`SELECT id, balance_cents, version FROM wallets WHERE user_id=$1`,
		userID).Scan(&wal.ID, &wal.BalanceCents, &wal.Version)
	if err == sql.ErrNoRows {
		wal.ID = uuid.NewString()
		wal.Version = 1
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, balance_cents, version) VALUES($1,$2,0,1)`,
			wal.ID, userID); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return wal, nil
}

// Get retorna a carteira sem criar.
func (w *Wallets) Get(ctx context.Context, userID string) (*Wallet, error) {
	wal := &Wallet{UserID: userID}
	err := w.db.QueryRowContext(ctx,
		`SELECT id, balance_cents, version FROM wallets WHERE user_id=$1`,
		userID).Scan(&wal.ID, &wal.BalanceCents, &wal.Version)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return wal, nil
}

// Credit incrementa o saldo incondicionalmente (amount >= 0).
// Cria a carteira se necessário; não está sujeito a conflito de versão.
func (w *Wallets) Credit(ctx context.Context, userID string, amountCents int64) (int64, error) {
	if amountCents < 0 {
		return 0, fmt.Errorf("credit amount must be >= 0, got %d", amountCents)
	}
	var newBalance int64
	err := w.db.QueryRowContext(ctx, `
		INSERT INTO wallets(id, user_id, balance_cents, version)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id) DO UPDATE SET
		  balance_cents = wallets.balance_cents + EXCLUDED.balance_cents,
		  version       = wallets.version + 1
		RETURNING balance_cents`,
		uuid.NewString(), userID, amountCents).Scan(&newBalance)
	if err != nil {
		return 0, fmt.Errorf("credit wallet: %w", err)
	}
	return newBalance, nil
}

// Debit subtrai amount do saldo condicionado à versão observada na leitura.
// Retorna ErrInsufficientFunds quando o saldo observado não cobre o valor e
// ErrConcurrencyConflict quando outro escritor venceu a corrida; nesse caso o
// chamador decide entre repetir ou abortar.
func (w *Wallets) Debit(ctx context.Context, userID string, amountCents int64) (int64, error) {
	wal, err := w.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if wal.BalanceCents < amountCents {
		return 0, ErrInsufficientFunds
	}

	var newBalance int64
	err = w.db.QueryRowContext(ctx, `
		UPDATE wallets
		SET balance_cents = balance_cents - $1, version = version + 1
		WHERE user_id = $2 AND version = $3
		RETURNING balance_cents`,
		amountCents, userID, wal.Version).Scan(&newBalance)
	if err == sql.ErrNoRows {
		return 0, ErrConcurrencyConflict
	}
	if err != nil {
		return 0, fmt.Errorf("debit wallet: %w", err)
	}
	return newBalance, nil
}
