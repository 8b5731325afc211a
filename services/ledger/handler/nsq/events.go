package nsq

import (
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
	nsqpkg "github.com/finvero/ledgercore/internal/pkg/nsq"
	"github.com/finvero/ledgercore/services/ledger/gateway"
)

// EventHandler consumes finalized transaction events for the audit
// trail. It never mutates ledger state; failed messages are requeued
// and eventually moved to the topic's dead-letter topic.
type EventHandler struct {
	cfg       *models.Config
	producer  *nsqpkg.Producer
	logger    *logger.ZapLogger
	consumers []*nsqpkg.Consumer
}

// NewEventHandler creates a new transaction event handler
func NewEventHandler(cfg *models.Config, producer *nsqpkg.Producer, l *logger.ZapLogger) *EventHandler {
	return &EventHandler{
		cfg:      cfg,
		producer: producer,
		logger:   l,
	}
}

// InitConsumers subscribes to the transaction lifecycle topics
func (h *EventHandler) InitConsumers() error {
	topics := []string{
		gateway.TopicTransactionCompleted,
		gateway.TopicTransactionFailed,
	}

	for _, topic := range topics {
		consumer, err := nsqpkg.NewConsumer(
			topic,
			h.cfg.NSQ.Channel,
			h.cfg.NSQ.Address,
			h.producer,
			h.handleTransactionEvent,
			h.logger,
		)
		if err != nil {
			return err
		}
		h.consumers = append(h.consumers, consumer)
	}
	return nil
}

// handleTransactionEvent records the event in the audit log
func (h *EventHandler) handleTransactionEvent(message []byte) error {
	var event models.TransactionEvent
	if err := nsqpkg.UnmarshalMessage(message, &event); err != nil {
		return err
	}

	if event.Status == models.TransactionStatusFailed {
		h.logger.Warn("Transaction failed",
			logger.String("transaction_id", event.TransactionID),
			logger.String("type", string(event.Type)),
			logger.String("error", event.ErrorMessage))
		return nil
	}

	h.logger.Info("Transaction completed",
		logger.String("transaction_id", event.TransactionID),
		logger.String("type", string(event.Type)),
		logger.String("currency", event.Currency))
	return nil
}

// Stop stops all consumers
func (h *EventHandler) Stop() {
	for _, consumer := range h.consumers {
		consumer.Stop()
	}
}
