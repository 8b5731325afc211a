package nsq

import (
	"encoding/json"
	"fmt"

	"github.com/nsqio/go-nsq"

	"github.com/finvero/ledgercore/internal/pkg/logger"
)

// maxAttempts is the fixed per-message retry budget before a message
// moves to the dead-letter topic.
const maxAttempts = 3

// DeadLetterSuffix is appended to a topic name to form its dead-letter topic
const DeadLetterSuffix = ".deadletter"

// MessageHandler is a function that processes NSQ messages
type MessageHandler func(message []byte) error

// Consumer handles consuming messages from an NSQ topic. Messages
// that fail maxAttempts times are republished to the topic's
// dead-letter topic, so no message is silently lost.
type Consumer struct {
	consumer *nsq.Consumer
	topic    string
}

// handler adapts a MessageHandler and redirects exhausted messages to
// the dead-letter topic.
type handler struct {
	fn         MessageHandler
	topic      string
	deadLetter *Producer
	logger     *logger.ZapLogger
}

func (h *handler) HandleMessage(message *nsq.Message) error {
	if err := h.fn(message.Body); err != nil {
		h.logger.Warn("Error processing message, will requeue",
			logger.String("topic", h.topic),
			logger.Uint32("attempts", uint32(message.Attempts)),
			logger.Err(err))
		return err
	}
	return nil
}

// LogFailedMessage is invoked by go-nsq once a message exhausts
// MaxAttempts; the message is moved to the dead-letter topic.
func (h *handler) LogFailedMessage(message *nsq.Message) {
	if h.deadLetter == nil {
		h.logger.Error("Message exhausted retries and no dead-letter producer is configured",
			logger.String("topic", h.topic))
		return
	}

	if err := h.deadLetter.producer.Publish(h.topic+DeadLetterSuffix, message.Body); err != nil {
		h.logger.Error("Failed to publish to dead-letter topic",
			logger.String("topic", h.topic+DeadLetterSuffix),
			logger.Err(err))
		return
	}

	h.logger.Warn("Message moved to dead-letter topic",
		logger.String("topic", h.topic+DeadLetterSuffix),
		logger.Uint32("attempts", uint32(message.Attempts)))
}

// NewConsumer creates a new NSQ consumer for a topic/channel. The
// producer is used to move exhausted messages to the dead-letter topic.
func NewConsumer(topic, channel, address string, deadLetter *Producer, fn MessageHandler, l *logger.ZapLogger) (*Consumer, error) {
	config := nsq.NewConfig()
	config.MaxAttempts = maxAttempts

	consumer, err := nsq.NewConsumer(topic, channel, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ consumer: %w", err)
	}

	consumer.AddHandler(&handler{
		fn:         fn,
		topic:      topic,
		deadLetter: deadLetter,
		logger:     l,
	})

	if err := consumer.ConnectToNSQD(address); err != nil {
		return nil, fmt.Errorf("failed to connect to NSQ daemon: %w", err)
	}

	return &Consumer{consumer: consumer, topic: topic}, nil
}

// ConnectToLookupd connects the consumer to NSQ lookupd instances
func (c *Consumer) ConnectToLookupd(addresses []string) error {
	for _, addr := range addresses {
		if err := c.consumer.ConnectToNSQLookupd(addr); err != nil {
			return fmt.Errorf("failed to connect to NSQ lookupd at %s: %w", addr, err)
		}
	}
	return nil
}

// UnmarshalMessage deserializes a JSON message into the provided struct
func UnmarshalMessage(messageBody []byte, v interface{}) error {
	if err := json.Unmarshal(messageBody, v); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	c.consumer.Stop()
}
