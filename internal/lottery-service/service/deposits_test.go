package service

import (
	"context"
	"errors"
	"testing"

	"github.com/radieske/bolao-platform/internal/lottery-service/payment"
	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
)

func TestCreateDepositRequest(t *testing.T) {
	ctx := context.Background()
	caller := Caller{ID: "u1"}

	t.Run("emite cobranca e registra transacao pendente", func(t *testing.T) {
		env := newTestEnv()

		dep, err := env.svc.CreateDepositRequest(ctx, caller, 2000, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dep.PaymentID == "" || dep.QRCode == "" {
			t.Fatalf("charge incomplete: %+v", dep)
		}
		txs := env.txs.byType(repo.TxDeposit)
		if len(txs) != 1 || txs[0].Status != repo.TxPending || txs[0].PaymentID != dep.PaymentID {
			t.Fatalf("deposit tx wrong: %+v", txs)
		}
		if env.wallets.balances["u1"] != 0 {
			t.Fatal("wallet must not be credited before confirmation")
		}
	})

	t.Run("abaixo do minimo", func(t *testing.T) {
		env := newTestEnv()
		if _, err := env.svc.CreateDepositRequest(ctx, caller, 499, ""); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if env.payments.charges != 0 {
			t.Fatal("no charge should be created")
		}
	})

	t.Run("provedor fora do ar", func(t *testing.T) {
		env := newTestEnv()
		env.payments.fail = errors.New("connection refused")

		if _, err := env.svc.CreateDepositRequest(ctx, caller, 2000, ""); !errors.Is(err, ErrExternalService) {
			t.Fatalf("expected ErrExternalService, got %v", err)
		}
		if len(env.txs.txs) != 0 {
			t.Fatal("no transaction should be stored")
		}
	})
}

func TestNormalizeProviderStatus(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"approved", payment.StatusApproved},
		{"PAID", payment.StatusApproved},
		{" Confirmed ", payment.StatusApproved},
		{"pending", payment.StatusPending},
		{"in_process", payment.StatusPending},
		{"rejected", payment.StatusRejected},
		{"EXPIRED", payment.StatusRejected},
		{"whatever", payment.StatusUnknown},
		{"", payment.StatusUnknown},
	}
	for _, tc := range cases {
		if got := NormalizeProviderStatus(tc.in); got != tc.want {
			t.Errorf("NormalizeProviderStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestConfirmPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("aprovado credita e completa a pendente", func(t *testing.T) {
		env := newTestEnv()
		dep, err := env.svc.CreateDepositRequest(ctx, Caller{ID: "u1"}, 2000, "")
		if err != nil {
			t.Fatalf("deposit request: %v", err)
		}

		if err := env.svc.ConfirmPayment(ctx, "u1", dep.PaymentID, 2000, payment.StatusApproved); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.wallets.balances["u1"] != 2000 {
			t.Fatalf("balance = %d, want 2000", env.wallets.balances["u1"])
		}
		txs := env.txs.byType(repo.TxDeposit)
		if len(txs) != 1 || txs[0].Status != repo.TxCompleted {
			t.Fatalf("deposit tx = %+v", txs)
		}
	})

	t.Run("reentrega do mesmo pagamento e no-op", func(t *testing.T) {
		env := newTestEnv()
		if err := env.svc.ConfirmPayment(ctx, "u1", "pix-1", 2000, payment.StatusApproved); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		if err := env.svc.ConfirmPayment(ctx, "u1", "pix-1", 2000, payment.StatusApproved); err != nil {
			t.Fatalf("redelivery must ack: %v", err)
		}
		if env.wallets.balances["u1"] != 2000 {
			t.Fatalf("balance = %d, want 2000 (single credit)", env.wallets.balances["u1"])
		}
	})

	t.Run("nao aprovado e descartado sem credito", func(t *testing.T) {
		env := newTestEnv()
		for _, st := range []string{payment.StatusPending, payment.StatusRejected, payment.StatusUnknown} {
			if err := env.svc.ConfirmPayment(ctx, "u1", "pix-x", 2000, st); err != nil {
				t.Fatalf("status %s must ack: %v", st, err)
			}
		}
		if env.wallets.balances["u1"] != 0 {
			t.Fatal("nothing should be credited")
		}
	})

	t.Run("evento incompleto e invalido", func(t *testing.T) {
		env := newTestEnv()
		cases := []struct {
			user, pay string
			amount    int64
		}{
			{"", "pix-1", 2000},
			{"u1", "", 2000},
			{"u1", "pix-1", 0},
			{"u1", "pix-1", -5},
		}
		for _, tc := range cases {
			err := env.svc.ConfirmPayment(ctx, tc.user, tc.pay, tc.amount, payment.StatusApproved)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation for %+v, got %v", tc, err)
			}
		}
	})

	t.Run("falha transitoria estorna e devolve erro", func(t *testing.T) {
		env := newTestEnv()
		env.txs.failCompleteN = 1
		env.txs.completeDepErr = errors.New("pg down")

		err := env.svc.ConfirmPayment(ctx, "u1", "pix-1", 2000, payment.StatusApproved)
		if err == nil {
			t.Fatal("expected error for redelivery")
		}
		if env.wallets.balances["u1"] != 0 {
			t.Fatalf("balance = %d, want 0 (credit compensated)", env.wallets.balances["u1"])
		}

		// Reentrega depois que o banco voltou.
		if err := env.svc.ConfirmPayment(ctx, "u1", "pix-1", 2000, payment.StatusApproved); err != nil {
			t.Fatalf("redelivery: %v", err)
		}
		if env.wallets.balances["u1"] != 2000 {
			t.Fatalf("balance = %d, want 2000", env.wallets.balances["u1"])
		}
	})

	t.Run("corrida perdida no registro estorna e faz ack", func(t *testing.T) {
		env := newTestEnv()
		env.txs.failCompleteN = 1
		env.txs.completeDepErr = repo.ErrDuplicatePayment

		if err := env.svc.ConfirmPayment(ctx, "u1", "pix-1", 2000, payment.StatusApproved); err != nil {
			t.Fatalf("duplicate must ack: %v", err)
		}
		if env.wallets.balances["u1"] != 0 {
			t.Fatalf("balance = %d, want 0 (excess credit compensated)", env.wallets.balances["u1"])
		}
	})
}
