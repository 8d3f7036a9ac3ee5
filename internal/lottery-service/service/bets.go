package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
)

// BetReceipt é o retorno de uma colocação de aposta bem-sucedida.
type BetReceipt struct {
	BetID           string
	ChosenNumbers   []int64
	AmountCents     int64
	NewBalanceCents int64
}

// PlaceBet coloca uma aposta: valida a escolha, debita o preço com CAS na
// carteira e só então grava aposta e transação. Não há transação multi-entidade
// no store; cada escrita após o débito tem compensação explícita — nunca fica
// "dinheiro saiu, aposta não existe".
func (s *Service) PlaceBet(ctx context.Context, caller Caller, contestID string, numbers []int) (*BetReceipt, error) {
	chosen, err := ValidateChosenNumbers(numbers)
	if err != nil {
		return nil, err
	}

	contest, err := s.contestForBetting(ctx, contestID)
	if err != nil {
		return nil, err
	}
	price := contest.BetPriceCents

	newBalance, err := s.debitWithRetry(ctx, caller.ID, price)
	if err != nil {
		return nil, err
	}

	betID, err := s.bets.Insert(ctx, &repo.Bet{
		ContestID:     contest.ID,
		UserID:        caller.ID,
		ChosenNumbers: chosen,
		AmountCents:   price,
	})
	if err != nil {
		s.compensateDebit(ctx, caller.ID, price, "bet insert failed")
		if errors.Is(err, repo.ErrContestNotOpen) {
			// O cache serviu uma cópia anterior ao fechamento; derruba a
			// entrada para a próxima leitura já ver o status real.
			if s.cache != nil {
				if cerr := s.cache.Invalidate(ctx, contest.ID); cerr != nil {
					s.log.Warn("contest cache invalidate failed", zap.String("contestId", contest.ID), zap.Error(cerr))
				}
			}
		}
		return nil, err
	}

	_, err = s.txs.Insert(ctx, &repo.Transaction{
		UserID:      caller.ID,
		Type:        repo.TxBet,
		Status:      repo.TxCompleted,
		AmountCents: -price,
		Description: fmt.Sprintf("Aposta no concurso %s - %s", contest.MonthYear, formatNumbers(chosen)),
	})
	if err != nil {
		if derr := s.bets.Delete(ctx, betID); derr != nil {
			s.log.Error("bet rollback failed, manual reconciliation required",
				zap.String("betId", betID), zap.String("userId", caller.ID), zap.Error(derr))
		}
		s.compensateDebit(ctx, caller.ID, price, "bet transaction insert failed")
		return nil, err
	}

	// Acumulador best-effort do pote; sob concorrência pode defasar um pouco.
	if err := s.contests.AddCollected(ctx, contest.ID, price); err != nil {
		s.log.Warn("contest total increment failed",
			zap.String("contestId", contest.ID), zap.String("betId", betID), zap.Error(err))
	}

	s.log.Info("bet placed",
		zap.String("betId", betID),
		zap.String("contestId", contest.ID),
		zap.String("userId", caller.ID),
		zap.Int64("amountCents", price),
	)

	return &BetReceipt{
		BetID:           betID,
		ChosenNumbers:   chosen,
		AmountCents:     price,
		NewBalanceCents: newBalance,
	}, nil
}

// contestForBetting resolve o concurso (cache com TTL curto, banco na falta)
// e aplica as pré-condições de aposta: aberto e antes da data de fechamento.
func (s *Service) contestForBetting(ctx context.Context, contestID string) (*repo.Contest, error) {
	var contest *repo.Contest
	if s.cache != nil {
		var cached repo.Contest
		if ok, err := s.cache.Get(ctx, contestID, &cached); err == nil && ok {
			contest = &cached
		}
	}
	if contest == nil {
		c, err := s.contests.Get(ctx, contestID)
		if err != nil {
			return nil, err
		}
		contest = c
		if s.cache != nil {
			if err := s.cache.Set(ctx, contestID, contest); err != nil {
				s.log.Warn("contest cache set failed", zap.String("contestId", contestID), zap.Error(err))
			}
		}
	}

	if contest.Status != repo.ContestOpen {
		return nil, ErrContestClosed
	}
	if s.now().After(contest.ClosingDate) {
		return nil, ErrContestClosed
	}
	return contest, nil
}

// compensateDebit estorna um débito quando uma escrita posterior falhou.
func (s *Service) compensateDebit(ctx context.Context, userID string, amountCents int64, reason string) {
	if _, err := s.wallets.Credit(ctx, userID, amountCents); err != nil {
		s.log.Error("debit compensation failed, manual reconciliation required",
			zap.String("userId", userID),
			zap.Int64("amountCents", amountCents),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

// formatNumbers imprime a escolha canônica, ex: "03, 17, 25, 44, 78, 90".
func formatNumbers(nums []int64) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, ", ")
}

// MyBets lista as apostas do caller, mais recentes primeiro.
func (s *Service) MyBets(ctx context.Context, caller Caller, limit int) ([]repo.Bet, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.bets.ListByUser(ctx, caller.ID, limit)
}
