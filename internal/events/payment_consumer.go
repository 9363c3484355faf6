package events

import (
	"context"
	"errors"

	"github.com/atollstay/service-reservation/internal/application"
	"github.com/atollstay/service-reservation/internal/domain/audit"
	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/atollstay/service-reservation/internal/platform/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Payment topic and event types produced by the payment subsystem.
const (
	TopicPaymentEvents = "payment.events"

	PaymentSucceeded = "payment.succeeded"
	PaymentRefunded  = "payment.refunded"
)

// PaymentEvent is the data payload of payment.* events.
type PaymentEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	PaymentID     uuid.UUID `json:"payment_id"`
	Amount        string    `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
}

// ReservationTransitioner is the part of the reservation service driven by payments.
type ReservationTransitioner interface {
	ConfirmReservation(ctx context.Context, id uuid.UUID, actor audit.Actor) (*application.ReservationDTO, error)
	RefundReservation(ctx context.Context, id uuid.UUID, actor audit.Actor) (*application.ReservationDTO, error)
}

// PaymentEventConsumer listens to payment events and moves reservations along.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	service  ReservationTransitioner
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	service ReservationTransitioner,
	logger *zap.Logger,
) *PaymentEventConsumer {
	return &PaymentEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, TopicPaymentEvents, logger),
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case PaymentSucceeded:
		return c.apply(ctx, cloudEvent, "confirm", c.service.ConfirmReservation)
	case PaymentRefunded:
		return c.apply(ctx, cloudEvent, "refund", c.service.RefundReservation)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

type paymentAction func(ctx context.Context, id uuid.UUID, actor audit.Actor) (*application.ReservationDTO, error)

func (c *PaymentEventConsumer) apply(ctx context.Context, cloudEvent kafka.CloudEvent, action string, fn paymentAction) error {
	var evt PaymentEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.ReservationID == uuid.Nil {
		c.logger.Error("failed to parse payment event data",
			zap.String("type", cloudEvent.Type),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	log := c.logger.With(
		zap.String("reservation_id", evt.ReservationID.String()),
		zap.String("payment_id", evt.PaymentID.String()),
		zap.String("action", action),
	)

	dto, err := fn(ctx, evt.ReservationID, audit.PaymentActor())
	if err != nil {
		var transition *domain.StateTransitionError
		var notFound *domain.NotFoundError
		switch {
		case errors.As(err, &transition):
			// Redelivered or out-of-order event: the reservation already moved on.
			log.Warn("payment event does not apply to reservation status", zap.Error(err))
			return nil
		case errors.As(err, &notFound):
			log.Warn("payment event for unknown reservation", zap.Error(err))
			return nil
		case domain.IsDomainError(err) && !domain.IsRetryable(err):
			log.Error("payment event rejected", zap.Error(err))
			return nil
		}
		// Conflicts and infrastructure errors are retried by the consumer.
		log.Error("failed to apply payment event", zap.Error(err))
		return err
	}

	log.Info("payment event applied", zap.String("code", dto.Code), zap.String("status", dto.Status))
	return nil
}
