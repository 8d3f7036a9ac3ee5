package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestTransactionsInsertDuplicatePayment(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// índice único de payment_id violado
	mock.ExpectExec(`INSERT INTO transactions`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err = NewTransactions(db).Insert(ctx, &Transaction{
		UserID:      "u1",
		Type:        TxPrize,
		Status:      TxCompleted,
		AmountCents: 64000,
		PaymentID:   "prize:c1:bet-1",
	})
	if !errors.Is(err, ErrDuplicatePayment) {
		t.Fatalf("expected ErrDuplicatePayment, got %v", err)
	}
}

func TestTransactionsUpdateStatusIfPending(t *testing.T) {
	ctx := context.Background()

	t.Run("transiciona pending", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectExec(`UPDATE transactions`).
			WithArgs(TxCompleted, "", "tx-1", TxPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := NewTransactions(db).UpdateStatusIfPending(ctx, "tx-1", TxCompleted, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ja resolvida vira ErrTxNotPending", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectExec(`UPDATE transactions`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = NewTransactions(db).UpdateStatusIfPending(ctx, "tx-1", TxFailed, "motivo")
		if !errors.Is(err, ErrTxNotPending) {
			t.Fatalf("expected ErrTxNotPending, got %v", err)
		}
	})
}

func TestCompleteDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("completa a pendente existente", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectExec(`UPDATE transactions`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := NewTransactions(db).CompleteDeposit(ctx, "u1", "pix-1", 2000, "Depósito via PIX"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("sem pendente insere completed nova", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectExec(`UPDATE transactions`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO transactions`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := NewTransactions(db).CompleteDeposit(ctx, "u1", "pix-1", 2000, "Depósito via PIX"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("expectations: %v", err)
		}
	})

	t.Run("corrida duplicada vira ErrDuplicatePayment", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectExec(`UPDATE transactions`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO transactions`).
			WillReturnError(&pq.Error{Code: "23505"})

		err = NewTransactions(db).CompleteDeposit(ctx, "u1", "pix-1", 2000, "Depósito via PIX")
		if !errors.Is(err, ErrDuplicatePayment) {
			t.Fatalf("expected ErrDuplicatePayment, got %v", err)
		}
	})
}
