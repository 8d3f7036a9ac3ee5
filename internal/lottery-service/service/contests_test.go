package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
)

func TestCreateContest(t *testing.T) {
	ctx := context.Background()
	admin := Caller{ID: "adm", Admin: true}
	closing := time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC)

	t.Run("cria com semente do acumulado", func(t *testing.T) {
		env := newTestEnv()
		env.contests.carryover = 42000

		c, err := env.svc.CreateContest(ctx, admin, "Fevereiro 2026", 500, closing)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.ID == "" || c.Status != repo.ContestOpen {
			t.Fatalf("contest = %+v", c)
		}
		if c.TotalCollectedCents != 42000 {
			t.Fatalf("seed = %d, want 42000", c.TotalCollectedCents)
		}
	})

	t.Run("apenas um aberto por vez", func(t *testing.T) {
		env := newTestEnv(openContest("c1", 500))
		_, err := env.svc.CreateContest(ctx, admin, "Fevereiro 2026", 500, closing)
		if !errors.Is(err, repo.ErrOpenContestExists) {
			t.Fatalf("expected ErrOpenContestExists, got %v", err)
		}
	})

	t.Run("validacoes", func(t *testing.T) {
		env := newTestEnv()
		cases := []struct {
			name    string
			label   string
			price   int64
			closing time.Time
		}{
			{"rotulo vazio", "  ", 500, closing},
			{"preco zero", "Fevereiro 2026", 0, closing},
			{"preco negativo", "Fevereiro 2026", -1, closing},
			{"fechamento no passado", "Fevereiro 2026", 500, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if _, err := env.svc.CreateContest(ctx, admin, tc.label, tc.price, tc.closing); !errors.Is(err, ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
			})
		}
	})

	t.Run("nao admin e rejeitado", func(t *testing.T) {
		env := newTestEnv()
		if _, err := env.svc.CreateContest(ctx, Caller{ID: "u1"}, "Fevereiro 2026", 500, closing); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestContestBetsVisibility(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(openContest("c1", 500))
	seedBet(env, "c1", "u1", []int64{0, 1, 2, 3, 4, 5})
	seedBet(env, "c1", "u2", []int64{10, 11, 12, 13, 14, 15})

	t.Run("aberto esconde numeros alheios", func(t *testing.T) {
		bets, err := env.svc.ContestBets(ctx, Caller{ID: "u1"}, "c1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, b := range bets {
			if b.UserID == "u1" && b.ChosenNumbers == nil {
				t.Fatal("own numbers must be visible")
			}
			if b.UserID != "u1" && b.ChosenNumbers != nil {
				t.Fatal("other players' numbers must be hidden while open")
			}
		}
	})

	t.Run("admin ve tudo", func(t *testing.T) {
		bets, err := env.svc.ContestBets(ctx, Caller{ID: "adm", Admin: true}, "c1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, b := range bets {
			if b.ChosenNumbers == nil {
				t.Fatal("admin must see every bet")
			}
		}
	})

	t.Run("fechado expoe tudo", func(t *testing.T) {
		if _, err := env.svc.CloseContest(ctx, Caller{ID: "adm", Admin: true}, "c1", drawNumbers); err != nil {
			t.Fatalf("close: %v", err)
		}
		bets, err := env.svc.ContestBets(ctx, Caller{ID: "u1"}, "c1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, b := range bets {
			if b.ChosenNumbers == nil {
				t.Fatal("numbers must be public after settlement")
			}
		}
	})
}

func TestUpdateTierConfig(t *testing.T) {
	ctx := context.Background()
	admin := Caller{ID: "adm", Admin: true}

	t.Run("atualiza percentuais", func(t *testing.T) {
		env := newTestEnv()
		tc, err := env.svc.UpdateTierConfig(ctx, admin, 15, 70, 30)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tc.HouseSharePct != 15 || tc.SixHitsSharePct != 70 || tc.FiveHitsSharePct != 30 {
			t.Fatalf("tc = %+v", tc)
		}
	})

	t.Run("potes devem somar 100", func(t *testing.T) {
		env := newTestEnv()
		if _, err := env.svc.UpdateTierConfig(ctx, admin, 20, 70, 20); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("percentual fora de faixa", func(t *testing.T) {
		env := newTestEnv()
		if _, err := env.svc.UpdateTierConfig(ctx, admin, 101, 80, 20); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("nao admin nem le nem escreve", func(t *testing.T) {
		env := newTestEnv()
		if _, err := env.svc.TierConfig(ctx, Caller{ID: "u1"}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden on read, got %v", err)
		}
		if _, err := env.svc.UpdateTierConfig(ctx, Caller{ID: "u1"}, 20, 80, 20); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden on write, got %v", err)
		}
	})

	t.Run("nova config vale para o proximo encerramento", func(t *testing.T) {
		c := openContest("c1", 500)
		c.TotalCollectedCents = 100000
		env := newTestEnv(c)
		seedBet(env, "c1", "u1", []int64{0, 1, 2, 3, 4, 5})

		if _, err := env.svc.UpdateTierConfig(ctx, admin, 10, 80, 20); err != nil {
			t.Fatalf("update: %v", err)
		}
		if _, err := env.svc.CloseContest(ctx, admin, "c1", drawNumbers); err != nil {
			t.Fatalf("close: %v", err)
		}
		// pote 6 de 80000 com 10% de taxa: 72000
		if env.wallets.balances["u1"] != 72000 {
			t.Fatalf("u1 = %d, want 72000", env.wallets.balances["u1"])
		}
	})
}
