package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/shared/config"
	"github.com/radieske/bolao-platform/internal/shared/logger"
	"github.com/radieske/bolao-platform/internal/shared/metrics"
)

var (
	chargesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pix_sim_charges_created_total",
		Help: "Cobranças PIX criadas",
	})
	chargesPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pix_sim_charges_paid_total",
		Help: "Cobranças pagas no simulador",
	})
	webhookFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pix_sim_webhook_failures_total",
		Help: "Entregas de webhook que falharam",
	})
)

type charge struct {
	PaymentID   string    `json:"payment_id"`
	UserID      string    `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	QRCode      string    `json:"qr_code"`
	TicketURL   string    `json:"ticket_url"`
	Status      string    `json:"status"` // pending | approved | expired
	WebhookURL  string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type createChargeReq struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	WebhookURL  string `json:"webhook_url"`
}

// store guarda cobranças em memória. Simulador de desenvolvimento: estado se
// perde no restart, e está tudo bem.
type store struct {
	mu        sync.RWMutex
	byID      map[string]*charge
	byIdemKey map[string]string // X-Idempotency-Key -> payment_id
}

func newStore() *store {
	return &store{byID: make(map[string]*charge), byIdemKey: make(map[string]string)}
}

type server struct {
	log     *zap.Logger
	st      *store
	webhook *http.Client
}

func (s *server) createCharge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createChargeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 || req.WebhookURL == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// Mesma X-Idempotency-Key devolve a mesma cobrança.
	idemKey := r.Header.Get("X-Idempotency-Key")
	s.st.mu.Lock()
	if idemKey != "" {
		if id, ok := s.st.byIdemKey[idemKey]; ok {
			c := s.st.byID[id]
			s.st.mu.Unlock()
			writeJSON(w, http.StatusOK, c)
			return
		}
	}

	id := uuid.NewString()
	c := &charge{
		PaymentID:   id,
		UserID:      req.UserID,
		AmountCents: req.AmountCents,
		Description: req.Description,
		QRCode:      fakeBRCode(id, req.AmountCents),
		TicketURL:   "http://localhost:8085/payments/" + id,
		Status:      "pending",
		WebhookURL:  req.WebhookURL,
		ExpiresAt:   time.Now().Add(30 * time.Minute),
	}
	s.st.byID[id] = c
	if idemKey != "" {
		s.st.byIdemKey[idemKey] = id
	}
	s.st.mu.Unlock()

	chargesCreated.Inc()
	s.log.Info("charge created",
		zap.String("paymentId", id),
		zap.String("userId", req.UserID),
		zap.Int64("amountCents", req.AmountCents),
	)
	writeJSON(w, http.StatusCreated, c)
}

// chargeRoutes trata GET /payments/{id} e POST /payments/{id}/pay.
func (s *server) chargeRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/payments/")
	if rest == "" {
		http.Error(w, "payment id required", http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodPost && strings.HasSuffix(rest, "/pay") {
		s.payCharge(w, r, strings.TrimSuffix(rest, "/pay"))
		return
	}
	if r.Method == http.MethodGet {
		s.st.mu.RLock()
		c, ok := s.st.byID[rest]
		s.st.mu.RUnlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, c)
		return
	}
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

// payCharge simula o pagador escaneando o QR: marca a cobrança como aprovada
// e entrega o webhook. Pagar duas vezes reenvia o webhook com o mesmo
// payment_id, que o consumidor descarta por idempotência.
func (s *server) payCharge(w http.ResponseWriter, r *http.Request, id string) {
	s.st.mu.Lock()
	c, ok := s.st.byID[id]
	if !ok {
		s.st.mu.Unlock()
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if time.Now().After(c.ExpiresAt) {
		c.Status = "expired"
		s.st.mu.Unlock()
		http.Error(w, "charge expired", http.StatusConflict)
		return
	}
	firstPay := c.Status == "pending"
	c.Status = "approved"
	s.st.mu.Unlock()

	if firstPay {
		chargesPaid.Inc()
	}
	s.deliverWebhook(c)
	writeJSON(w, http.StatusOK, c)
}

// deliverWebhook entrega a confirmação com até 3 tentativas.
func (s *server) deliverWebhook(c *charge) {
	payload, _ := json.Marshal(map[string]any{
		"payment_id":   c.PaymentID,
		"user_id":      c.UserID,
		"amount_cents": c.AmountCents,
		"status":       "approved",
		"provider":     "pix-simulator",
	})

	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			time.Sleep(time.Duration(300*i) * time.Millisecond)
		}
		req, _ := http.NewRequest(http.MethodPost, c.WebhookURL, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.webhook.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 300 {
			s.log.Info("webhook delivered", zap.String("paymentId", c.PaymentID))
			return
		}
		lastErr = fmt.Errorf("webhook http %d", resp.StatusCode)
	}

	webhookFailures.Inc()
	s.log.Error("webhook delivery failed",
		zap.String("paymentId", c.PaymentID),
		zap.String("url", c.WebhookURL),
		zap.Error(lastErr),
	)
}

func fakeBRCode(id string, amountCents int64) string {
	// Formato inspirado no BR Code real, bom o bastante pra colar no front.
	return fmt.Sprintf("00020126580014br.gov.bcb.pix0136%s5204000053039865406%.2f5802BR6009Bolao Sim%s6304ABCD",
		id, float64(amountCents)/100, time.Now().Format("0102"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(chargesCreated, chargesPaid, webhookFailures)

	s := &server{
		log:     log,
		st:      newStore(),
		webhook: &http.Client{Timeout: 5 * time.Second},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/payments", s.createCharge)
	mux.HandleFunc("/payments/", s.chargeRoutes)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error { return nil })

	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("pix simulator running",
		zap.String("addr", addr),
		zap.String("paths", "/payments,/payments/{id},/payments/{id}/pay"),
	)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
