package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/lottery-service/payment"
	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
)

// DepositRequest é a cobrança PIX emitida mais a transação pendente que a
// ancora no razão.
type DepositRequest struct {
	TransactionID string
	PaymentID     string
	QRCode        string
	TicketURL     string
	AmountCents   int64
}

// CreateDepositRequest emite uma cobrança no provedor PIX e registra a
// transação pendente correspondente. O crédito em carteira só acontece quando
// o webhook confirma o pagamento.
func (s *Service) CreateDepositRequest(ctx context.Context, caller Caller, amountCents int64, description string) (*DepositRequest, error) {
	if amountCents < s.minDepositCents {
		return nil, fmt.Errorf("%w: valor mínimo de depósito é R$ %.2f", ErrValidation, float64(s.minDepositCents)/100)
	}
	if s.payments == nil {
		return nil, fmt.Errorf("%w: provedor de pagamento indisponível", ErrExternalService)
	}

	desc := strings.TrimSpace(description)
	if desc == "" {
		desc = fmt.Sprintf("Depósito via PIX - R$ %.2f", float64(amountCents)/100)
	}
	charge, err := s.payments.CreateCharge(ctx, caller.ID, amountCents, desc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	txID, err := s.txs.Insert(ctx, &repo.Transaction{
		UserID:      caller.ID,
		Type:        repo.TxDeposit,
		Status:      repo.TxPending,
		AmountCents: amountCents,
		Description: desc,
		PaymentID:   charge.PaymentID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("deposit request created",
		zap.String("userId", caller.ID),
		zap.String("txId", txID),
		zap.String("paymentId", charge.PaymentID),
		zap.Int64("amountCents", amountCents),
	)
	return &DepositRequest{
		TransactionID: txID,
		PaymentID:     charge.PaymentID,
		QRCode:        charge.QRCode,
		TicketURL:     charge.TicketURL,
		AmountCents:   amountCents,
	}, nil
}

// NormalizeProviderStatus mapeia os vocabulários dos provedores para o status
// canônico do evento de confirmação.
func NormalizeProviderStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "paid", "confirmed", "completed", "success":
		return payment.StatusApproved
	case "pending", "in_process", "waiting", "created":
		return payment.StatusPending
	case "rejected", "cancelled", "canceled", "refused", "expired", "failed":
		return payment.StatusRejected
	default:
		return payment.StatusUnknown
	}
}

// ConfirmPayment credita um depósito confirmado. Idempotente: o payment_id é
// a chave de deduplicação; reentrega do mesmo evento é no-op.
//
// Retorno nil = evento consumido (ack); erro = falha transitória, o chamador
// pode reentregar.
func (s *Service) ConfirmPayment(ctx context.Context, userID, paymentID string, amountCents int64, status string) error {
	if userID == "" || paymentID == "" || amountCents <= 0 {
		return fmt.Errorf("%w: evento de pagamento incompleto", ErrValidation)
	}
	if status != payment.StatusApproved {
		// Só "approved" credita; demais status são registrados e descartados.
		s.log.Info("payment event ignored",
			zap.String("paymentId", paymentID),
			zap.String("status", status),
		)
		return nil
	}

	done, err := s.txs.CompletedPaymentExists(ctx, paymentID)
	if err != nil {
		return err
	}
	if done {
		s.log.Info("payment already processed", zap.String("paymentId", paymentID))
		return nil
	}

	newBalance, err := s.wallets.Credit(ctx, userID, amountCents)
	if err != nil {
		return fmt.Errorf("credit deposit: %w", err)
	}

	err = s.txs.CompleteDeposit(ctx, userID, paymentID, amountCents,
		fmt.Sprintf("Depósito via PIX - R$ %.2f", float64(amountCents)/100))
	if err != nil {
		// Estorna o crédito; em duplicidade outro consumidor ganhou a
		// corrida e este crédito é o excedente.
		if _, cerr := s.debitWithRetry(ctx, userID, amountCents); cerr != nil {
			s.log.Error("deposit compensation failed, manual reconciliation required",
				zap.String("userId", userID),
				zap.String("paymentId", paymentID),
				zap.Int64("amountCents", amountCents),
				zap.Error(cerr),
			)
		}
		if errors.Is(err, repo.ErrDuplicatePayment) {
			return nil
		}
		return fmt.Errorf("record deposit: %w", err)
	}

	s.log.Info("deposit credited",
		zap.String("userId", userID),
		zap.String("paymentId", paymentID),
		zap.Int64("amountCents", amountCents),
		zap.Int64("newBalanceCents", newBalance),
	)
	return nil
}
