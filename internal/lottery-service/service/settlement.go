package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
	"github.com/radieske/bolao-platform/pkg/contracts/events"
)

// SettlementResult é o retorno do encerramento de um concurso.
type SettlementResult struct {
	ContestID       string
	WinningNumbers  []int64
	Winners6        int
	Winners5        int
	HadWinners      bool
	PrizeValueCents int64
	CarryoverCents  int64
	PaidPayouts     int
	FailedPayouts   []FailedPayout
}

// FailedPayout registra um crédito de prêmio que não efetivou mesmo após
// retry. A aposta fica com prize_paid=false e entra na reconciliação.
type FailedPayout struct {
	BetID       string
	UserID      string
	AmountCents int64
	Reason      string
}

// CloseContest encerra um concurso: valida caller e sorteio, fecha o concurso
// (ponto único de linearização — no máximo uma execução por concurso), apura
// acertos de todas as apostas, calcula os potes por faixa com a configuração
// vigente e credita os ganhadores de forma idempotente.
func (s *Service) CloseContest(ctx context.Context, caller Caller, contestID string, numbers []int) (*SettlementResult, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	winning, err := ValidateWinningNumbers(numbers)
	if err != nil {
		return nil, err
	}

	contest, err := s.contests.Get(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Status != repo.ContestOpen {
		return nil, repo.ErrContestNotOpen
	}

	// open -> closed em um único UPDATE condicional; a tentativa concorrente
	// perdedora vê zero linhas e aborta sem efeito colateral.
	if err := s.contests.CloseIfOpen(ctx, contestID, winning); err != nil {
		return nil, err
	}

	// Relê o concurso depois do fechamento: uma aposta que entrou entre o
	// snapshot inicial e o UPDATE precisa do stake contado no pote.
	contest, err = s.contests.Get(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("reload contest after close: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, contestID); err != nil {
			s.log.Warn("contest cache invalidate failed", zap.String("contestId", contestID), zap.Error(err))
		}
	}

	s.log.Info("contest closed, settling",
		zap.String("contestId", contestID),
		zap.String("admin", caller.ID),
		zap.Int64("totalCollectedCents", contest.TotalCollectedCents),
	)

	// Percentuais lidos no início de cada execução, nunca de um singleton.
	tc, err := s.tiers.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tier config: %w", err)
	}

	bets, err := s.bets.ListByContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("load contest bets: %w", err)
	}

	// Apura e persiste hits de toda aposta, ganhadora ou não. Falha pontual
	// não interrompe a apuração: hits é recomputável e idempotente.
	var winners6, winners5 []repo.Bet
	for _, b := range bets {
		hits := countHits(b.ChosenNumbers, winning)
		if err := s.bets.SetHits(ctx, b.ID, hits); err != nil {
			s.log.Error("persist hits failed",
				zap.String("contestId", contestID), zap.String("betId", b.ID), zap.Error(err))
		}
		switch hits {
		case 6:
			winners6 = append(winners6, b)
		case 5:
			winners5 = append(winners5, b)
		}
	}

	prizeValue := contest.TotalCollectedCents

	// Pote de faixa só existe com ganhadores na faixa; faixa vazia não
	// redistribui para a outra — o valor rola via carryover.
	var pool6, pool5, net6, net5 int64
	if len(winners6) > 0 {
		pool6 = tierPoolCents(prizeValue, tc.SixHitsSharePct)
		net6 = perWinnerNetCents(pool6, len(winners6), tc.HouseSharePct)
	}
	if len(winners5) > 0 {
		pool5 = tierPoolCents(prizeValue, tc.FiveHitsSharePct)
		net5 = perWinnerNetCents(pool5, len(winners5), tc.HouseSharePct)
	}

	result := &SettlementResult{
		ContestID:       contestID,
		WinningNumbers:  winning,
		Winners6:        len(winners6),
		Winners5:        len(winners5),
		HadWinners:      len(winners6)+len(winners5) > 0,
		PrizeValueCents: prizeValue,
	}

	// Grava o prêmio devido antes de creditar: a reconciliação paga o valor
	// assentado aqui, não um recálculo futuro.
	for _, b := range winners6 {
		if err := s.bets.SetPrizeDue(ctx, b.ID, net6); err != nil {
			s.log.Error("persist prize due failed", zap.String("betId", b.ID), zap.Error(err))
		}
	}
	for _, b := range winners5 {
		if err := s.bets.SetPrizeDue(ctx, b.ID, net5); err != nil {
			s.log.Error("persist prize due failed", zap.String("betId", b.ID), zap.Error(err))
		}
	}

	s.creditWinners(ctx, contest, winners6, net6, 6, result)
	s.creditWinners(ctx, contest, winners5, net5, 5, result)

	if !result.HadWinners {
		result.CarryoverCents = contest.TotalCollectedCents
	}
	if err := s.contests.RecordCarryover(ctx, contestID, result.CarryoverCents); err != nil {
		s.log.Error("record carryover failed", zap.String("contestId", contestID), zap.Error(err))
	}

	if s.notifier != nil {
		s.notifier.ContestSettled(ctx, events.ContestSettled{
			ContestID:       contestID,
			MonthYear:       contest.MonthYear,
			WinningNumbers:  toInts(winning),
			Winners6:        result.Winners6,
			Winners5:        result.Winners5,
			HadWinners:      result.HadWinners,
			PrizeValueCents: result.PrizeValueCents,
			CarryoverCents:  result.CarryoverCents,
			FailedPayouts:   len(result.FailedPayouts),
		})
	}

	s.log.Info("contest settled",
		zap.String("contestId", contestID),
		zap.Int("winners6", result.Winners6),
		zap.Int("winners5", result.Winners5),
		zap.Int64("carryoverCents", result.CarryoverCents),
		zap.Int("failedPayouts", len(result.FailedPayouts)),
	)
	return result, nil
}

// creditWinners roda o laço de crédito de uma faixa com um retry por ganhador.
// Falha persistente não passa silenciosa: entra em FailedPayouts e fica
// elegível para RetryPayouts.
func (s *Service) creditWinners(ctx context.Context, contest *repo.Contest, winners []repo.Bet, netCents int64, hits int, result *SettlementResult) {
	for _, b := range winners {
		err := s.payWinner(ctx, contest, b, netCents, hits)
		if err != nil {
			err = s.payWinner(ctx, contest, b, netCents, hits)
		}
		if err != nil {
			s.log.Error("prize credit failed",
				zap.String("contestId", contest.ID),
				zap.String("betId", b.ID),
				zap.String("userId", b.UserID),
				zap.Int64("amountCents", netCents),
				zap.Error(err),
			)
			result.FailedPayouts = append(result.FailedPayouts, FailedPayout{
				BetID:       b.ID,
				UserID:      b.UserID,
				AmountCents: netCents,
				Reason:      err.Error(),
			})
			continue
		}
		result.PaidPayouts++
	}
}

func prizeRef(contestID, betID string) string {
	return "prize:" + contestID + ":" + betID
}

// payWinner efetiva um prêmio individual: crédito na carteira, transação
// prize ancorada na referência determinística e marcação da aposta. A
// referência única torna reexecuções detectáveis; crédito duplicado em corrida
// perdida é estornado.
func (s *Service) payWinner(ctx context.Context, contest *repo.Contest, b repo.Bet, netCents int64, hits int) error {
	ref := prizeRef(contest.ID, b.ID)

	done, err := s.txs.CompletedPaymentExists(ctx, ref)
	if err != nil {
		return err
	}
	if done {
		// Prêmio já efetivado em execução anterior; só reassenta a flag.
		if err := s.bets.MarkPrizePaid(ctx, b.ID); err != nil {
			s.log.Warn("prize paid flag update failed", zap.String("betId", b.ID), zap.Error(err))
		}
		return nil
	}

	if _, err := s.wallets.Credit(ctx, b.UserID, netCents); err != nil {
		return fmt.Errorf("credit winner: %w", err)
	}

	_, err = s.txs.Insert(ctx, &repo.Transaction{
		UserID:      b.UserID,
		Type:        repo.TxPrize,
		Status:      repo.TxCompleted,
		AmountCents: netCents,
		Description: fmt.Sprintf("Prêmio (%d acertos) - %s", hits, contest.MonthYear),
		PaymentID:   ref,
	})
	if err != nil {
		// Estorna o crédito antes de reportar; em duplicidade a outra
		// execução já pagou e este crédito é o excedente.
		s.compensateDebitPrize(ctx, b.UserID, netCents, ref)
		if errors.Is(err, repo.ErrDuplicatePayment) {
			if merr := s.bets.MarkPrizePaid(ctx, b.ID); merr != nil {
				s.log.Warn("prize paid flag update failed", zap.String("betId", b.ID), zap.Error(merr))
			}
			return nil
		}
		return fmt.Errorf("record prize transaction: %w", err)
	}

	if err := s.bets.MarkPrizePaid(ctx, b.ID); err != nil {
		// Dinheiro e ledger corretos; só a flag ficou para trás. A
		// reconciliação reassenta via referência de prêmio.
		s.log.Warn("prize paid flag update failed", zap.String("betId", b.ID), zap.Error(err))
	}

	s.notify(ctx, events.Notification{
		UserID:  b.UserID,
		Type:    "prize_credited",
		Title:   "Prêmio creditado",
		Message: fmt.Sprintf("Você acertou %d números no concurso %s e recebeu R$ %.2f.", hits, contest.MonthYear, float64(netCents)/100),
		Data:    map[string]string{"contest_id": contest.ID, "bet_id": b.ID},
	})
	return nil
}

// compensateDebitPrize desfaz um crédito de prêmio que não pôde ser assentado.
func (s *Service) compensateDebitPrize(ctx context.Context, userID string, amountCents int64, ref string) {
	if _, err := s.debitWithRetry(ctx, userID, amountCents); err != nil {
		s.log.Error("prize credit compensation failed, manual reconciliation required",
			zap.String("userId", userID),
			zap.Int64("amountCents", amountCents),
			zap.String("paymentRef", ref),
			zap.Error(err),
		)
	}
}

// ReconcileResult é o retorno da reconciliação de prêmios.
type ReconcileResult struct {
	ContestID     string
	Attempted     int
	Paid          int
	FailedPayouts []FailedPayout
}

// RetryPayouts reexecuta o crédito de ganhadores não pagos de um concurso já
// encerrado. Idempotente: ganhador já pago é no-op pela referência de prêmio.
func (s *Service) RetryPayouts(ctx context.Context, caller Caller, contestID string) (*ReconcileResult, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	contest, err := s.contests.Get(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Status != repo.ContestClosed {
		return nil, ErrContestNotClosed
	}

	unpaid, err := s.bets.UnpaidWinners(ctx, contestID)
	if err != nil {
		return nil, err
	}
	result := &ReconcileResult{ContestID: contestID, Attempted: len(unpaid)}
	if len(unpaid) == 0 {
		return result, nil
	}

	// Valor devido foi assentado no encerramento; recalcula só se o assento
	// falhou na época (prize_cents nulo).
	var net6, net5 int64
	var computed bool
	for _, b := range unpaid {
		hits := 0
		if b.Hits != nil {
			hits = *b.Hits
		}
		due := int64(0)
		if b.PrizeCents != nil {
			due = *b.PrizeCents
		} else {
			if !computed {
				net6, net5, err = s.recomputeNets(ctx, contest)
				if err != nil {
					return nil, err
				}
				computed = true
			}
			if hits == 6 {
				due = net6
			} else {
				due = net5
			}
			if err := s.bets.SetPrizeDue(ctx, b.ID, due); err != nil {
				s.log.Error("persist prize due failed", zap.String("betId", b.ID), zap.Error(err))
			}
		}

		if err := s.payWinner(ctx, contest, b, due, hits); err != nil {
			result.FailedPayouts = append(result.FailedPayouts, FailedPayout{
				BetID:       b.ID,
				UserID:      b.UserID,
				AmountCents: due,
				Reason:      err.Error(),
			})
			continue
		}
		result.Paid++
	}

	s.log.Info("payout reconciliation finished",
		zap.String("contestId", contestID),
		zap.String("admin", caller.ID),
		zap.Int("attempted", result.Attempted),
		zap.Int("paid", result.Paid),
		zap.Int("failed", len(result.FailedPayouts)),
	)
	return result, nil
}

// recomputeNets refaz o valor por ganhador a partir dos hits assentados.
func (s *Service) recomputeNets(ctx context.Context, contest *repo.Contest) (net6, net5 int64, err error) {
	tc, err := s.tiers.Current(ctx)
	if err != nil {
		return 0, 0, err
	}
	bets, err := s.bets.ListByContest(ctx, contest.ID)
	if err != nil {
		return 0, 0, err
	}
	var n6, n5 int
	for _, b := range bets {
		if b.Hits == nil {
			continue
		}
		switch *b.Hits {
		case 6:
			n6++
		case 5:
			n5++
		}
	}
	if n6 > 0 {
		net6 = perWinnerNetCents(tierPoolCents(contest.TotalCollectedCents, tc.SixHitsSharePct), n6, tc.HouseSharePct)
	}
	if n5 > 0 {
		net5 = perWinnerNetCents(tierPoolCents(contest.TotalCollectedCents, tc.FiveHitsSharePct), n5, tc.HouseSharePct)
	}
	return net6, net5, nil
}

func toInts(nums []int64) []int {
	out := make([]int, len(nums))
	for i, n := range nums {
		out[i] = int(n)
	}
	return out
}
