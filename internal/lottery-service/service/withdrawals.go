package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
	"github.com/radieske/bolao-platform/pkg/contracts/events"
)

// RequestWithdrawal registra um pedido de saque pendente. O saldo não é
// debitado aqui: a reserva só acontece na aprovação.
func (s *Service) RequestWithdrawal(ctx context.Context, caller Caller, amountCents int64) (*repo.Transaction, error) {
	if amountCents < s.minWithdrawalCents {
		return nil, fmt.Errorf("%w: valor mínimo de saque é R$ %.2f", ErrValidation, float64(s.minWithdrawalCents)/100)
	}
	if caller.PixKey == "" {
		return nil, fmt.Errorf("%w: cadastre uma chave PIX antes de solicitar saque", ErrValidation)
	}

	wallet, err := s.wallets.GetOrCreate(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if wallet.BalanceCents < amountCents {
		return nil, repo.ErrInsufficientFunds
	}

	pending, err := s.txs.HasPendingWithdrawal(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrPendingWithdrawalExists
	}

	t := &repo.Transaction{
		UserID:      caller.ID,
		Type:        repo.TxWithdrawal,
		Status:      repo.TxPending,
		AmountCents: -amountCents,
		Description: fmt.Sprintf("Saque via PIX (%s)", caller.PixKey),
	}
	id, err := s.txs.Insert(ctx, t)
	if err != nil {
		return nil, err
	}
	t.ID = id

	s.log.Info("withdrawal requested",
		zap.String("userId", caller.ID),
		zap.String("txId", id),
		zap.Int64("amountCents", amountCents),
	)
	return t, nil
}

// ApproveWithdrawal debita a carteira e conclui o pedido. O pedido é o ponto
// de linearização: pending -> completed via UPDATE condicional, então duas
// aprovações concorrentes debitam no máximo uma vez (a perdedora estorna).
func (s *Service) ApproveWithdrawal(ctx context.Context, caller Caller, txID string) (*repo.Transaction, int64, error) {
	if !caller.Admin {
		return nil, 0, ErrForbidden
	}
	t, err := s.txs.Get(ctx, txID)
	if err != nil {
		return nil, 0, err
	}
	if t.Type != repo.TxWithdrawal || t.Status != repo.TxPending {
		return nil, 0, repo.ErrTxNotPending
	}
	amount := -t.AmountCents

	// Recheca o saldo na aprovação: pode ter sido gasto desde o pedido.
	wallet, err := s.wallets.Get(ctx, t.UserID)
	if err != nil {
		return nil, 0, err
	}
	if wallet.BalanceCents < amount {
		if uerr := s.txs.UpdateStatusIfPending(ctx, txID, repo.TxFailed, "Saldo insuficiente para saque"); uerr != nil {
			s.log.Warn("withdrawal fail-mark skipped", zap.String("txId", txID), zap.Error(uerr))
		}
		return nil, 0, repo.ErrInsufficientFunds
	}

	newBalance, err := s.debitWithRetry(ctx, t.UserID, amount)
	if err != nil {
		if errors.Is(err, repo.ErrInsufficientFunds) {
			if uerr := s.txs.UpdateStatusIfPending(ctx, txID, repo.TxFailed, "Saldo insuficiente para saque"); uerr != nil {
				s.log.Warn("withdrawal fail-mark skipped", zap.String("txId", txID), zap.Error(uerr))
			}
		}
		return nil, 0, err
	}

	if err := s.txs.UpdateStatusIfPending(ctx, txID, repo.TxCompleted, ""); err != nil {
		// Outra execução resolveu o pedido primeiro; este débito é o
		// excedente e volta para a carteira.
		if _, cerr := s.wallets.Credit(ctx, t.UserID, amount); cerr != nil {
			s.log.Error("withdrawal compensation failed, manual reconciliation required",
				zap.String("txId", txID),
				zap.String("userId", t.UserID),
				zap.Int64("amountCents", amount),
				zap.Error(cerr),
			)
		}
		return nil, 0, err
	}
	t.Status = repo.TxCompleted

	s.log.Info("withdrawal approved",
		zap.String("txId", txID),
		zap.String("userId", t.UserID),
		zap.String("admin", caller.ID),
		zap.Int64("amountCents", amount),
	)
	s.notify(ctx, events.Notification{
		UserID:  t.UserID,
		Type:    "withdrawal_approved",
		Title:   "Saque aprovado",
		Message: fmt.Sprintf("Seu saque de R$ %.2f foi aprovado e será transferido via PIX.", float64(amount)/100),
		Data:    map[string]string{"transaction_id": txID},
	})
	return t, newBalance, nil
}

// RejectWithdrawal marca o pedido como failed. Nada foi debitado, então não
// há estorno a fazer.
func (s *Service) RejectWithdrawal(ctx context.Context, caller Caller, txID, reason string) (*repo.Transaction, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	t, err := s.txs.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if t.Type != repo.TxWithdrawal || t.Status != repo.TxPending {
		return nil, repo.ErrTxNotPending
	}
	if reason == "" {
		reason = "Saque rejeitado"
	}

	if err := s.txs.UpdateStatusIfPending(ctx, txID, repo.TxFailed, reason); err != nil {
		return nil, err
	}
	t.Status = repo.TxFailed
	t.Description = reason

	s.log.Info("withdrawal rejected",
		zap.String("txId", txID),
		zap.String("userId", t.UserID),
		zap.String("admin", caller.ID),
	)
	s.notify(ctx, events.Notification{
		UserID:  t.UserID,
		Type:    "withdrawal_rejected",
		Title:   "Saque rejeitado",
		Message: reason,
		Data:    map[string]string{"transaction_id": txID},
	})
	return t, nil
}
