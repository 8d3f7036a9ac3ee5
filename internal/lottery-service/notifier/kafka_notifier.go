package notifier

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/pkg/contracts/events"
)

// Kafka publica notificações e eventos de encerramento. O sink é best-effort:
// toda falha é logada e engolida, nunca propaga para a operação de origem.
type Kafka struct {
	log           *zap.Logger
	notifications *kafkago.Writer
	settled       *kafkago.Writer
}

func New(log *zap.Logger, notifications, settled *kafkago.Writer) *Kafka {
	return &Kafka{log: log, notifications: notifications, settled: settled}
}

// Notify envia uma notificação ao usuário. Best-effort.
func (k *Kafka) Notify(ctx context.Context, n events.Notification) {
	if k == nil || k.notifications == nil {
		return
	}
	n.Ts = time.Now().UTC()
	b, _ := json.Marshal(n)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := k.notifications.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(n.UserID),
		Value: b,
	}); err != nil {
		k.log.Warn("notification publish failed",
			zap.String("userId", n.UserID),
			zap.String("type", n.Type),
			zap.Error(err),
		)
	}
}

// ContestSettled publica o resultado do encerramento. Best-effort.
func (k *Kafka) ContestSettled(ctx context.Context, ev events.ContestSettled) {
	if k == nil || k.settled == nil {
		return
	}
	ev.Ts = time.Now().UTC()
	b, _ := json.Marshal(ev)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := k.settled.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(ev.ContestID),
		Value: b,
	}); err != nil {
		k.log.Warn("contest settled publish failed",
			zap.String("contestId", ev.ContestID),
			zap.Error(err),
		)
	}
}
