package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Transactions implementa o ledger financeiro em banco.
type Transactions struct{ db *sql.DB }

func NewTransactions(db *sql.DB) *Transactions { return &Transactions{db: db} }

// Insert grava uma transação. payment_id vazio vira NULL; quando presente,
// o índice único transforma reentrega em ErrDuplicatePayment.
func (r *Transactions) Insert(ctx context.Context, t *Transaction) (string, error) {
	id := uuid.NewString()
	var paymentID sql.NullString
	if t.PaymentID != "" {
		paymentID = sql.NullString{String: t.PaymentID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, status, amount_cents, description, payment_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`,
		id, t.UserID, t.Type, t.Status, t.AmountCents, t.Description, paymentID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return "", ErrDuplicatePayment
		}
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// Get retorna uma transação pelo id.
func (r *Transactions) Get(ctx context.Context, id string) (*Transaction, error) {
	var t Transaction
	var paymentID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, status, amount_cents, description, payment_id, created_at
		FROM transactions WHERE id=$1`, id).
		Scan(&t.ID, &t.UserID, &t.Type, &t.Status, &t.AmountCents, &t.Description, &paymentID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.PaymentID = paymentID.String
	return &t, nil
}

// ListByUser retorna o extrato do usuário, mais recente primeiro.
func (r *Transactions) ListByUser(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, status, amount_cents, description, payment_id, created_at
		FROM transactions WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var paymentID sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Status, &t.AmountCents,
			&t.Description, &paymentID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.PaymentID = paymentID.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// HasPendingWithdrawal diz se o usuário já tem um saque aguardando aprovação.
func (r *Transactions) HasPendingWithdrawal(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions WHERE user_id=$1 AND type=$2 AND status=$3
		)`, userID, TxWithdrawal, TxPending).Scan(&exists)
	return exists, err
}

// UpdateStatusIfPending transiciona pending -> newStatus de forma condicional.
// É a guarda simétrica de aprovar/rejeitar: duas ações concorrentes sobre o
// mesmo saque não podem ambas vencer — a perdedora recebe ErrTxNotPending.
func (r *Transactions) UpdateStatusIfPending(ctx context.Context, id, newStatus, description string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET status=$1, description=$2
		WHERE id=$3 AND status=$4`,
		newStatus, description, id, TxPending)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTxNotPending
	}
	return nil
}

// CompletedPaymentExists diz se já existe transação completed para a
// referência externa — o teste de idempotência do crédito de depósito.
func (r *Transactions) CompletedPaymentExists(ctx context.Context, paymentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions WHERE payment_id=$1 AND status=$2
		)`, paymentID, TxCompleted).Scan(&exists)
	return exists, err
}

// CompleteDeposit efetiva a transação de depósito de uma confirmação PIX.
// Primeiro tenta completar a transação pending criada junto com a cobrança;
// se ela não existir (webhook chegou antes), insere uma completed nova. A
// corrida entre duas entregas duplicadas é resolvida pelo índice único de
// payment_id (23505 -> ErrDuplicatePayment).
func (r *Transactions) CompleteDeposit(ctx context.Context, userID, paymentID string, amountCents int64, description string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET status=$1, amount_cents=$2, description=$3
		WHERE payment_id=$4 AND status=$5`,
		TxCompleted, amountCents, description, paymentID, TxPending)
	if err != nil {
		return fmt.Errorf("complete deposit: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}

	_, err = r.Insert(ctx, &Transaction{
		UserID:      userID,
		Type:        TxDeposit,
		Status:      TxCompleted,
		AmountCents: amountCents,
		Description: description,
		PaymentID:   paymentID,
	})
	return err
}
