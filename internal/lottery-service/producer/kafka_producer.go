package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/bolao-platform/pkg/contracts/events"
)

// KafkaPublisher publica confirmações de pagamento recebidas no webhook.
// O crédito em carteira acontece no consumidor, nunca no handler HTTP.
type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) PublishPaymentConfirmed(ctx context.Context, e events.PaymentConfirmed) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.PaymentID),
		Value: b,
	})
}
