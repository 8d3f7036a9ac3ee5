package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/lottery-service/repo"
	"github.com/radieske/bolao-platform/internal/lottery-service/service"
	"github.com/radieske/bolao-platform/internal/shared/config"
	"github.com/radieske/bolao-platform/internal/shared/db"
	"github.com/radieske/bolao-platform/internal/shared/kafka"
	"github.com/radieske/bolao-platform/internal/shared/logger"
	"github.com/radieske/bolao-platform/internal/shared/metrics"
	ev "github.com/radieske/bolao-platform/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: crédito de carteira e ledger de depósitos
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: eventos payment_confirmed publicados pelo webhook
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicPaymentConfirmed, "payment-confirmation")
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicPaymentConfirmedDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentConfirmedDLQ)
		defer dlqWriter.Close()
	}

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "payment_worker_messages_consumed_total", Help: "mensagens consumidas"})
	credited := prometheus.NewCounter(prometheus.CounterOpts{Name: "payment_worker_deposits_credited_total", Help: "depósitos creditados"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "payment_worker_messages_skipped_total", Help: "eventos ignorados (duplicados ou não aprovados)"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "payment_worker_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, credited, skipped, errorsBy)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	// Worker só precisa de carteiras e transações; sem cache, sem PIX
	svc := service.New(service.Deps{
		Log:     log,
		Wallets: repo.NewWallets(pg),
		Txs:     repo.NewTransactions(pg),
	})

	log.Info("payment-confirmation-worker started",
		zap.String("consume", cfg.TopicPaymentConfirmed),
		zap.String("dlq", cfg.TopicPaymentConfirmedDLQ),
	)

	ctx := context.Background()

	// Offset só avança depois do evento resolvido (creditado, ignorado ou na
	// DLQ). O webhook já respondeu 200 ao provedor, então um depósito
	// aprovado descartado aqui não tem segunda chance.
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			log.Warn("kafka fetch", zap.Error(err))
			errorsBy.WithLabelValues("consume").Inc()
			time.Sleep(time.Second)
			continue
		}
		consumed.Inc()

		var pc ev.PaymentConfirmed
		if jerr := json.Unmarshal(msg.Value, &pc); jerr != nil {
			log.Error("unmarshal payment_confirmed", zap.Error(jerr))
			errorsBy.WithLabelValues("unmarshal").Inc()
			sendToDLQ(ctx, dlqWriter, msg.Key, msg.Value)
			commit(ctx, log, reader, errorsBy, msg)
			continue
		}

		err = confirmWithRetry(ctx, log, svc, &pc, errorsBy, retryBackoff)
		switch {
		case err == nil:
			if pc.Status == "approved" {
				credited.Inc()
			} else {
				skipped.Inc()
			}
		default:
			// Esgotou as tentativas (ou payload inválido): preserva o evento
			// na DLQ antes de avançar o offset.
			log.Error("process payment", zap.String("paymentId", pc.PaymentID), zap.Error(err))
			sendToDLQ(ctx, dlqWriter, msg.Key, msg.Value)
		}
		commit(ctx, log, reader, errorsBy, msg)
	}
}

const (
	confirmAttempts = 5
	retryBackoff    = 500 * time.Millisecond
)

// confirmWithRetry processa o evento com tentativas limitadas para falhas
// transitórias (banco fora, conflito). Erro de validação é terminal e sai na
// primeira tentativa.
func confirmWithRetry(ctx context.Context, log *zap.Logger, svc *service.Service, pc *ev.PaymentConfirmed, errorsBy *prometheus.CounterVec, backoff time.Duration) error {
	var err error
	for attempt := 1; attempt <= confirmAttempts; attempt++ {
		err = svc.ConfirmPayment(ctx, pc.UserID, pc.PaymentID, pc.AmountCents, pc.Status)
		if err == nil {
			return nil
		}
		if errors.Is(err, service.ErrValidation) {
			errorsBy.WithLabelValues("validate").Inc()
			return err
		}
		errorsBy.WithLabelValues("process").Inc()
		log.Warn("process payment retry",
			zap.String("paymentId", pc.PaymentID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < confirmAttempts {
			time.Sleep(time.Duration(attempt) * backoff)
		}
	}
	return err
}

func commit(ctx context.Context, log *zap.Logger, r *kafkago.Reader, errorsBy *prometheus.CounterVec, msg kafkago.Message) {
	if err := r.CommitMessages(ctx, msg); err != nil {
		log.Warn("kafka commit", zap.Error(err))
		errorsBy.WithLabelValues("commit").Inc()
	}
}

func sendToDLQ(ctx context.Context, w *kafkago.Writer, key, value []byte) {
	if w == nil {
		return
	}
	_ = w.WriteMessages(ctx, kafkago.Message{Key: key, Value: value, Time: time.Now()})
}
