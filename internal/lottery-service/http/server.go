package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/lottery-service/auth"
	"github.com/radieske/bolao-platform/internal/lottery-service/dto"
	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
	"github.com/radieske/bolao-platform/internal/lottery-service/service"
	"github.com/radieske/bolao-platform/pkg/contracts/events"
)

// Verifier resolve o header Authorization em uma identidade (auth.Client).
type Verifier interface {
	Verify(ctx context.Context, authorization string) (*auth.Identity, error)
}

// PaymentPublisher encaminha confirmações de pagamento para o Kafka.
type PaymentPublisher interface {
	PublishPaymentConfirmed(ctx context.Context, e events.PaymentConfirmed) error
}

// Server expõe a API REST do bolão. O webhook de pagamento é a única rota sem
// autenticação: ele só normaliza e publica, quem credita é o worker.
type Server struct {
	log  *zap.Logger
	svc  *service.Service
	auth Verifier
	publ PaymentPublisher
}

func NewServer(log *zap.Logger, svc *service.Service, a Verifier, p PaymentPublisher) *Server {
	return &Server{log: log, svc: svc, auth: a, publ: p}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Webhook do provedor PIX: sempre 200, nunca processa inline.
	r.Post("/v1/payments/webhook", s.paymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/v1/contests/open", s.openContest)
		r.Get("/v1/contests/{id}", s.getContest)
		r.Get("/v1/contests/{id}/bets", s.contestBets)
		r.Post("/v1/contests", s.createContest)
		r.Post("/v1/contests/{id}/close", s.closeContest)
		r.Post("/v1/contests/{id}/payouts/retry", s.retryPayouts)

		r.Post("/v1/bets", s.placeBet)
		r.Get("/v1/bets", s.myBets)

		r.Get("/v1/wallet", s.wallet)
		r.Get("/v1/transactions", s.myTransactions)

		r.Post("/v1/deposits", s.createDeposit)
		r.Post("/v1/withdrawals", s.requestWithdrawal)
		r.Post("/v1/withdrawals/{id}/approve", s.approveWithdrawal)
		r.Post("/v1/withdrawals/{id}/reject", s.rejectWithdrawal)

		r.Get("/v1/tiers", s.getTiers)
		r.Put("/v1/tiers", s.updateTiers)
	})

	return r
}

type ctxKey int

const callerKey ctxKey = 0

// authenticate resolve o Authorization no provedor de identidade e injeta o
// Caller no contexto da requisição.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if authz == "" {
			writeError(w, http.StatusUnauthorized, "credenciais ausentes", "unauthorized")
			return
		}
		id, err := s.auth.Verify(r.Context(), authz)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				writeError(w, http.StatusUnauthorized, "credenciais inválidas", "unauthorized")
				return
			}
			s.log.Error("auth provider unreachable", zap.Error(err))
			writeError(w, http.StatusBadGateway, "provedor de autenticação indisponível", "auth_unavailable")
			return
		}
		caller := service.Caller{ID: id.UserID, Admin: id.IsAdmin, PixKey: id.PixKey}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, caller)))
	})
}

func callerFrom(r *http.Request) service.Caller {
	c, _ := r.Context().Value(callerKey).(service.Caller)
	return c
}

func (s *Server) openContest(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.OpenContest(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contestResponse(c))
}

func (s *Server) getContest(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetContest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contestResponse(c))
}

func (s *Server) contestBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.svc.ContestBets(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]dto.BetResponse, 0, len(bets))
	for i := range bets {
		out = append(out, betResponse(&bets[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createContest(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "json inválido", "bad_json")
		return
	}
	closing, err := time.Parse(time.RFC3339, req.ClosingDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "closing_date deve ser RFC3339", "validation")
		return
	}
	c, err := s.svc.CreateContest(r.Context(), callerFrom(r), req.MonthYear, req.BetPriceCents, closing)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, contestResponse(c))
}

func (s *Server) closeContest(w http.ResponseWriter, r *http.Request) {
	var req dto.CloseContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "json inválido", "bad_json")
		return
	}
	res, err := s.svc.CloseContest(r.Context(), callerFrom(r), chi.URLParam(r, "id"), req.WinningNumbers)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementResponse(res))
}

func (s *Server) retryPayouts(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.RetryPayouts(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := dto.ReconcileResponse{
		ContestID: res.ContestID,
		Attempted: res.Attempted,
		Paid:      res.Paid,
	}
	for _, f := range res.FailedPayouts {
		out.FailedPayouts = append(out.FailedPayouts, dto.FailedPayoutDetail(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "json inválido", "bad_json")
		return
	}
	if req.ContestID == "" {
		writeError(w, http.StatusBadRequest, "contest_id obrigatório", "validation")
		return
	}
	receipt, err := s.svc.PlaceBet(r.Context(), callerFrom(r), req.ContestID, req.Numbers)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{
		BetID:           receipt.BetID,
		ChosenNumbers:   receipt.ChosenNumbers,
		AmountCents:     receipt.AmountCents,
		NewBalanceCents: receipt.NewBalanceCents,
	})
}

func (s *Server) myBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.svc.MyBets(r.Context(), callerFrom(r), queryLimit(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]dto.BetResponse, 0, len(bets))
	for i := range bets {
		out = append(out, betResponse(&bets[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) wallet(w http.ResponseWriter, r *http.Request) {
	wal, err := s.svc.WalletBalance(r.Context(), callerFrom(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{
		UserID:       wal.UserID,
		BalanceCents: wal.BalanceCents,
	})
}

func (s *Server) myTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.MyTransactions(r.Context(), callerFrom(r), queryLimit(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]dto.TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, txResponse(&txs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createDeposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "json inválido", "bad_json")
		return
	}
	dep, err := s.svc.CreateDepositRequest(r.Context(), callerFrom(r), req.AmountCents, req.Description)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.DepositResponse{
		TransactionID: dep.TransactionID,
		PaymentID:     dep.PaymentID,
		QRCode:        dep.QRCode,
		TicketURL:     dep.TicketURL,
		AmountCents:   dep.AmountCents,
		Status:        repo.TxPending,
	})
}

func (s *Server) requestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "json inválido", "bad_json")
		return
	}
	t, err := s.svc.RequestWithdrawal(r.Context(), callerFrom(r), req.AmountCents)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txResponse(t))
}

func (s *Server) approveWithdrawal(w http.ResponseWriter, r *http.Request) {
	t, newBalance, err := s.svc.ApproveWithdrawal(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WithdrawalApprovalResponse{
		Transaction:     txResponse(t),
		NewBalanceCents: newBalance,
	})
}

func (s *Server) rejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req dto.RejectWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "json inválido", "bad_json")
		return
	}
	t, err := s.svc.RejectWithdrawal(r.Context(), callerFrom(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txResponse(t))
}

func (s *Server) getTiers(w http.ResponseWriter, r *http.Request) {
	tc, err := s.svc.TierConfig(r.Context(), callerFrom(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tierResponse(tc))
}

func (s *Server) updateTiers(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateTierConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "json inválido", "bad_json")
		return
	}
	tc, err := s.svc.UpdateTierConfig(r.Context(), callerFrom(r),
		req.HouseSharePct, req.SixHitsSharePct, req.FiveHitsSharePct)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tierResponse(tc))
}

// paymentWebhook normaliza o evento do provedor e publica no Kafka. Responde
// 200 mesmo para payload incompleto: reenvio do provedor não vai corrigir um
// payload quebrado, e o worker descarta eventos inválidos.
func (s *Server) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req dto.PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "json inválido", "bad_json")
		return
	}

	ev := events.PaymentConfirmed{
		PaymentID:   req.PaymentID,
		UserID:      req.UserID,
		AmountCents: req.AmountCents,
		Status:      service.NormalizeProviderStatus(req.Status),
		Provider:    req.Provider,
	}
	if err := s.publ.PublishPaymentConfirmed(r.Context(), ev); err != nil {
		// 500 força retry do provedor; o consumo é idempotente.
		s.log.Error("payment event publish failed",
			zap.String("paymentId", req.PaymentID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "falha ao enfileirar confirmação", "publish_failed")
		return
	}

	s.log.Info("payment webhook accepted",
		zap.String("paymentId", req.PaymentID),
		zap.String("status", ev.Status),
	)
	writeJSON(w, http.StatusOK, dto.WebhookAckResponse{Received: true})
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

// respondError traduz os erros sentinela das camadas de baixo para HTTP.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), "validation")
	case errors.Is(err, repo.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "saldo insuficiente", "insufficient_funds")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "apenas administradores", "forbidden")
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "não encontrado", "not_found")
	case errors.Is(err, repo.ErrContestNotOpen), errors.Is(err, service.ErrContestClosed):
		writeError(w, http.StatusConflict, "concurso não está aberto", "contest_not_open")
	case errors.Is(err, service.ErrContestNotClosed):
		writeError(w, http.StatusConflict, "concurso ainda não foi encerrado", "contest_not_closed")
	case errors.Is(err, repo.ErrOpenContestExists):
		writeError(w, http.StatusConflict, "já existe concurso aberto", "open_contest_exists")
	case errors.Is(err, repo.ErrDuplicateBet):
		writeError(w, http.StatusConflict, "você já apostou neste concurso", "duplicate_bet")
	case errors.Is(err, service.ErrPendingWithdrawalExists):
		writeError(w, http.StatusConflict, "já existe saque pendente", "pending_withdrawal_exists")
	case errors.Is(err, repo.ErrTxNotPending):
		writeError(w, http.StatusConflict, "solicitação já resolvida", "not_pending")
	case errors.Is(err, repo.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, "conflito de concorrência, tente novamente", "concurrency_conflict")
	case errors.Is(err, service.ErrExternalService):
		writeError(w, http.StatusBadGateway, err.Error(), "external_service")
	default:
		s.log.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro interno", "internal")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg, Code: code})
}

func contestResponse(c *repo.Contest) dto.ContestResponse {
	return dto.ContestResponse{
		ID:                  c.ID,
		MonthYear:           c.MonthYear,
		Status:              c.Status,
		BetPriceCents:       c.BetPriceCents,
		ClosingDate:         c.ClosingDate,
		TotalCollectedCents: c.TotalCollectedCents,
		NumBets:             c.NumBets,
		WinningNumbers:      c.WinningNumbers,
		CarryoverCents:      c.CarryoverCents,
		ClosedAt:            c.ClosedAt,
	}
}

func betResponse(b *repo.Bet) dto.BetResponse {
	return dto.BetResponse{
		ID:            b.ID,
		ContestID:     b.ContestID,
		ChosenNumbers: b.ChosenNumbers,
		AmountCents:   b.AmountCents,
		Hits:          b.Hits,
		PrizeCents:    b.PrizeCents,
		PrizePaid:     b.PrizePaid,
		CreatedAt:     b.CreatedAt,
	}
}

func txResponse(t *repo.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:          t.ID,
		Type:        t.Type,
		Status:      t.Status,
		AmountCents: t.AmountCents,
		Description: t.Description,
		PaymentID:   t.PaymentID,
		CreatedAt:   t.CreatedAt,
	}
}

func tierResponse(tc *repo.TierConfig) dto.TierConfigResponse {
	return dto.TierConfigResponse{
		HouseSharePct:    tc.HouseSharePct,
		SixHitsSharePct:  tc.SixHitsSharePct,
		FiveHitsSharePct: tc.FiveHitsSharePct,
		UpdatedAt:        tc.UpdatedAt,
	}
}

func settlementResponse(res *service.SettlementResult) dto.SettlementResponse {
	out := dto.SettlementResponse{
		ContestID:       res.ContestID,
		WinningNumbers:  res.WinningNumbers,
		Winners6:        res.Winners6,
		Winners5:        res.Winners5,
		HadWinners:      res.HadWinners,
		PrizeValueCents: res.PrizeValueCents,
		CarryoverCents:  res.CarryoverCents,
		PaidPayouts:     res.PaidPayouts,
	}
	for _, f := range res.FailedPayouts {
		out.FailedPayouts = append(out.FailedPayouts, dto.FailedPayoutDetail(f))
	}
	return out
}
