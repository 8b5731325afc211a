package gateway

import (
	"context"

	"github.com/finvero/ledgercore/internal/pkg/circuitbreaker"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
	"github.com/finvero/ledgercore/internal/pkg/nsq"
)

// Queue topics for ledger lifecycle events
const (
	TopicTransactionCompleted = "ledger.transaction.completed"
	TopicTransactionFailed    = "ledger.transaction.failed"
)

// QueueGateway publishes ledger events to NSQ behind its own circuit
// breaker. A failing queue is isolated here and never aborts a ledger
// commit.
type QueueGateway struct {
	producer *nsq.Producer
	breaker  *circuitbreaker.CircuitBreaker
	logger   *logger.ZapLogger
}

// NewQueueGateway creates a new queue gateway
func NewQueueGateway(producer *nsq.Producer, breaker *circuitbreaker.CircuitBreaker, l *logger.ZapLogger) *QueueGateway {
	return &QueueGateway{
		producer: producer,
		breaker:  breaker,
		logger:   l,
	}
}

// PublishTransactionEvent publishes a finalized transaction event to
// the topic matching its status
func (g *QueueGateway) PublishTransactionEvent(ctx context.Context, event *models.TransactionEvent) error {
	topic := TopicTransactionCompleted
	if event.Status == models.TransactionStatusFailed {
		topic = TopicTransactionFailed
	}

	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.producer.Publish(topic, event)
	})
}
