package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
)

// CreateContest abre o concurso do mês. O acumulado do último concurso
// encerrado entra como semente do prêmio. No máximo um concurso aberto por
// vez, garantido pelo INSERT condicional do repositório.
func (s *Service) CreateContest(ctx context.Context, caller Caller, monthYear string, betPriceCents int64, closingDate time.Time) (*repo.Contest, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(monthYear) == "" {
		return nil, fmt.Errorf("%w: informe o nome do concurso", ErrValidation)
	}
	if betPriceCents <= 0 {
		return nil, fmt.Errorf("%w: preço da aposta deve ser positivo", ErrValidation)
	}
	if !closingDate.After(s.now()) {
		return nil, fmt.Errorf("%w: data de encerramento deve ser futura", ErrValidation)
	}

	seed, err := s.contests.LastCarryover(ctx)
	if err != nil {
		return nil, err
	}

	c := &repo.Contest{
		MonthYear:           monthYear,
		Status:              repo.ContestOpen,
		BetPriceCents:       betPriceCents,
		ClosingDate:         closingDate,
		TotalCollectedCents: seed,
	}
	id, err := s.contests.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id

	if s.cache != nil {
		if err := s.cache.SetOpen(ctx, c); err != nil {
			s.log.Warn("contest cache set failed", zap.String("contestId", id), zap.Error(err))
		}
	}

	s.log.Info("contest created",
		zap.String("contestId", id),
		zap.String("monthYear", monthYear),
		zap.String("admin", caller.ID),
		zap.Int64("betPriceCents", betPriceCents),
		zap.Int64("seedCents", seed),
	)
	return c, nil
}

// OpenContest devolve o concurso aberto, se houver.
func (s *Service) OpenContest(ctx context.Context) (*repo.Contest, error) {
	if s.cache != nil {
		var c repo.Contest
		if ok, err := s.cache.GetOpen(ctx, &c); err == nil && ok {
			return &c, nil
		}
	}
	c, err := s.contests.GetOpen(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetOpen(ctx, c); err != nil {
			s.log.Warn("contest cache set failed", zap.String("contestId", c.ID), zap.Error(err))
		}
	}
	return c, nil
}

// GetContest devolve um concurso por id, aberto ou encerrado.
func (s *Service) GetContest(ctx context.Context, id string) (*repo.Contest, error) {
	if s.cache != nil {
		var c repo.Contest
		if ok, err := s.cache.Get(ctx, id, &c); err == nil && ok {
			return &c, nil
		}
	}
	c, err := s.contests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, id, c); err != nil {
			s.log.Warn("contest cache set failed", zap.String("contestId", id), zap.Error(err))
		}
	}
	return c, nil
}

// ContestBets lista as apostas de um concurso. Números alheios só aparecem
// depois do encerramento; antes disso cada um vê apenas a própria aposta.
func (s *Service) ContestBets(ctx context.Context, caller Caller, contestID string) ([]repo.Bet, error) {
	c, err := s.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	bets, err := s.bets.ListByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if c.Status == repo.ContestOpen && !caller.Admin {
		for i := range bets {
			if bets[i].UserID != caller.ID {
				bets[i].ChosenNumbers = nil
			}
		}
	}
	return bets, nil
}

// TierConfig devolve os percentuais vigentes de rateio.
func (s *Service) TierConfig(ctx context.Context, caller Caller) (*repo.TierConfig, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	return s.tiers.Current(ctx)
}

// UpdateTierConfig grava novos percentuais. Vale apenas para encerramentos
// futuros: concursos já encerrados não são reprocessados.
func (s *Service) UpdateTierConfig(ctx context.Context, caller Caller, housePct, sixPct, fivePct int) (*repo.TierConfig, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	if housePct < 0 || housePct > 100 || sixPct < 0 || sixPct > 100 || fivePct < 0 || fivePct > 100 {
		return nil, fmt.Errorf("%w: percentuais devem estar entre 0 e 100", ErrValidation)
	}
	if sixPct+fivePct != 100 {
		return nil, fmt.Errorf("%w: soma dos potes deve ser 100%%", ErrValidation)
	}

	tc := &repo.TierConfig{
		HouseSharePct:    housePct,
		SixHitsSharePct:  sixPct,
		FiveHitsSharePct: fivePct,
	}
	if err := s.tiers.Update(ctx, tc); err != nil {
		return nil, err
	}
	s.log.Info("tier config updated",
		zap.String("admin", caller.ID),
		zap.Int("housePct", housePct),
		zap.Int("sixPct", sixPct),
		zap.Int("fivePct", fivePct),
	)
	return tc, nil
}

// WalletBalance devolve (criando se preciso) a carteira do usuário.
func (s *Service) WalletBalance(ctx context.Context, caller Caller) (*repo.Wallet, error) {
	return s.wallets.GetOrCreate(ctx, caller.ID)
}

// MyTransactions lista o extrato do usuário, mais recentes primeiro.
func (s *Service) MyTransactions(ctx context.Context, caller Caller, limit int) ([]repo.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return s.txs.ListByUser(ctx, caller.ID, limit)
}
