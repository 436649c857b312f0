package messaging

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/usecase"
	"github.com/hydr0g3nz/ecom_inventory_service/pkg/logger"
	"github.com/hydr0g3nz/ecom_inventory_service/pkg/middleware"
	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds the Kafka wiring shared by the publisher and
// subscriber: brokers, the single outbound topic, the three inbound
// topics, and the base consumer group id from which each reader's
// per-topic group is derived.
type KafkaConfig struct {
	Brokers               []string
	OutboundTopic         string
	OrderCreatedTopic     string
	OrderCancelledTopic   string
	PaymentConfirmedTopic string
	DeadLetterTopic       string
	ConsumerGroupID       string
	MaxDeliveries         int
}

const deliveryCountHeader = "x-delivery-count"

// topicHandler pairs an inbound topic with the handler its messages are
// routed to, so one reader-loop shape can drive all three subscriptions.
type topicHandler struct {
	topic   string
	handle  func(ctx context.Context, payload []byte) error
	groupID string
}

// KafkaEventSubscriber runs one reader goroutine per inbound topic
// (order.created, order.cancelled, payment.confirmed), each in its own
// consumer group so a slow handler on one topic never backs up another.
type KafkaEventSubscriber struct {
	readers         []*kafka.Reader
	retryWriter     *kafka.Writer
	deadLetterTopic string
	maxDeliveries   int
	log             logger.Logger
}

// NewKafkaEventSubscriber builds one kafka.Reader per inbound topic and
// wires each to the matching handler on handlers. A message that still
// fails after config.MaxDeliveries attempts is diverted to
// config.DeadLetterTopic instead of being redelivered forever.
func NewKafkaEventSubscriber(config *KafkaConfig, handlers *usecase.EventHandlers, log logger.Logger) *KafkaEventSubscriber {
	topics := []topicHandler{
		{topic: config.OrderCreatedTopic, handle: handlers.HandleOrderCreated, groupID: config.ConsumerGroupID + "-order-created"},
		{topic: config.OrderCancelledTopic, handle: handlers.HandleOrderCancelled, groupID: config.ConsumerGroupID + "-order-cancelled"},
		{topic: config.PaymentConfirmedTopic, handle: handlers.HandlePaymentConfirmed, groupID: config.ConsumerGroupID + "-payment-confirmed"},
	}

	maxDeliveries := config.MaxDeliveries
	if maxDeliveries <= 0 {
		maxDeliveries = 3
	}

	sub := &KafkaEventSubscriber{
		log:             log,
		maxDeliveries:   maxDeliveries,
		deadLetterTopic: config.DeadLetterTopic,
		// AllowAutoTopicCreation left false: a Writer with no fixed Topic
		// routes by each Message's own Topic field, used here to target
		// either the source topic (retry) or the dead-letter topic.
		retryWriter: &kafka.Writer{
			Addr:         kafka.TCP(config.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
	for _, t := range topics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     config.Brokers,
			Topic:       t.topic,
			GroupID:     t.groupID,
			MinBytes:    10e3,
			MaxBytes:    10e6,
			StartOffset: kafka.FirstOffset,
		})
		sub.readers = append(sub.readers, reader)
		go sub.consume(reader, middleware.WrapHandler(log, t.topic, t.handle))
	}
	return sub
}

// consume reads messages from reader until the reader is closed,
// committing each message's offset only after its handler returns nil.
// A handler failure bumps the message's delivery-count header and
// republishes it to the same topic for retry, unless it has already been
// attempted maxDeliveries times, in which case it is diverted to the
// dead-letter topic with the original headers plus the failure reason.
func (s *KafkaEventSubscriber) consume(reader *kafka.Reader, handle func(ctx context.Context, payload []byte) error) {
	ctx := context.Background()
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, kafka.ErrGroupClosed) {
				return
			}
			s.log.Error("failed to fetch message", "topic", reader.Config().Topic, "error", err)
			continue
		}

		correlationID := correlationIDOf(msg.Headers)
		msgCtx := middleware.WithCorrelationID(ctx, correlationID)

		handleErr := handle(msgCtx, msg.Value)
		if handleErr == nil {
			if err := reader.CommitMessages(ctx, msg); err != nil {
				s.log.Error("failed to commit message offset", "topic", reader.Config().Topic, "error", err)
			}
			continue
		}

		attempts := deliveryCount(msg.Headers) + 1
		s.log.Error("handler failed", "topic", reader.Config().Topic, "attempt", attempts, "error", handleErr)

		if attempts >= s.maxDeliveries {
			s.divertToDeadLetter(ctx, reader.Config().Topic, msg, handleErr)
		} else if err := s.requeue(ctx, reader.Config().Topic, msg, attempts); err != nil {
			s.log.Error("failed to requeue message for retry", "topic", reader.Config().Topic, "error", err)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			s.log.Error("failed to commit message offset", "topic", reader.Config().Topic, "error", err)
		}
	}
}

// correlationIDOf returns the inbound x-correlation-id header, or a fresh
// id if the producer sent none.
func correlationIDOf(headers []kafka.Header) string {
	for _, h := range headers {
		if h.Key == middleware.CorrelationIDHeader {
			return string(h.Value)
		}
	}
	return middleware.NewCorrelationID()
}

func deliveryCount(headers []kafka.Header) int {
	for _, h := range headers {
		if h.Key == deliveryCountHeader {
			n, err := strconv.Atoi(string(h.Value))
			if err == nil {
				return n
			}
		}
	}
	return 0
}

// requeue republishes msg to sourceTopic with an incremented
// delivery-count header, since kafka-go's consumer-group reader has no
// native nack/redeliver: a failed message that is not yet poison must be
// resubmitted explicitly to be retried.
func (s *KafkaEventSubscriber) requeue(ctx context.Context, sourceTopic string, msg kafka.Message, attempts int) error {
	headers := withDeliveryCount(msg.Headers, attempts)
	return s.retryWriter.WriteMessages(ctx, kafka.Message{
		Topic:   sourceTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    time.Now(),
	})
}

// withDeliveryCount returns headers with deliveryCountHeader set to
// count, replacing any prior value.
func withDeliveryCount(headers []kafka.Header, count int) []kafka.Header {
	out := make([]kafka.Header, 0, len(headers)+1)
	for _, h := range headers {
		if h.Key != deliveryCountHeader {
			out = append(out, h)
		}
	}
	return append(out, kafka.Header{Key: deliveryCountHeader, Value: []byte(strconv.Itoa(count))})
}

// divertToDeadLetter republishes msg to the dead-letter topic, keeping its
// original headers and key, with the failure reason attached.
func (s *KafkaEventSubscriber) divertToDeadLetter(ctx context.Context, sourceTopic string, msg kafka.Message, cause error) {
	headers := append([]kafka.Header{}, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "x-source-topic", Value: []byte(sourceTopic)},
		kafka.Header{Key: "x-failure-reason", Value: []byte(cause.Error())},
	)
	dlqMsg := kafka.Message{
		Topic:   s.deadLetterTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    time.Now(),
	}
	if err := s.retryWriter.WriteMessages(ctx, dlqMsg); err != nil {
		s.log.Error("failed to write message to dead-letter topic", "sourceTopic", sourceTopic, "error", err)
	}
}

// Close closes every reader and the retry/dead-letter writer.
func (s *KafkaEventSubscriber) Close() error {
	var errs []error
	for _, r := range s.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.retryWriter.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
