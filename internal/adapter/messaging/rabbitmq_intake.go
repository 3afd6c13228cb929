package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/rl1809/plate-catalog/internal/core/domain"
)

type PlateAdder interface {
	AddPlate(ctx context.Context, req domain.NewPlate) (domain.PricedPlate, error)
}

// IntakeConsumer adds plates published to a durable queue. Messages are
// acked only after the plate is stored; malformed or invalid plates are
// dropped, anything else is requeued.
type IntakeConsumer struct {
	ch      *amqp.Channel
	queue   string
	catalog PlateAdder
	logger  *zap.Logger
}

func Dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}
	return conn, ch, nil
}

func NewIntakeConsumer(ch *amqp.Channel, queue string, catalog PlateAdder, logger *zap.Logger) *IntakeConsumer {
	return &IntakeConsumer{ch: ch, queue: queue, catalog: catalog, logger: logger}
}

// Run consumes until ctx is done or the channel closes.
func (c *IntakeConsumer) Run(ctx context.Context) error {
	q, err := c.ch.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("could not declare queue: %w", err)
	}

	if err := c.ch.Qos(16, 0, false); err != nil {
		return fmt.Errorf("could not set qos: %w", err)
	}

	msgs, err := c.ch.Consume(
		q.Name, // queue
		"",     // consumer tag
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("could not start consume: %w", err)
	}

	c.logger.Info("intake consumer started", zap.String("queue", q.Name))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("intake channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *IntakeConsumer) handle(ctx context.Context, d amqp.Delivery) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier(d.Headers))

	err := c.addPlate(ctx, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("ack failed", zap.Error(ackErr))
		}
	case errors.Is(err, errMalformed), errors.Is(err, domain.ErrValidation):
		c.logger.Warn("intake message rejected", zap.Error(err))
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Error("nack failed", zap.Error(nackErr))
		}
	default:
		c.logger.Error("intake failed, requeueing", zap.Error(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("nack failed", zap.Error(nackErr))
		}
	}
}

var errMalformed = errors.New("malformed intake message")

func (c *IntakeConsumer) addPlate(ctx context.Context, body []byte) error {
	var req domain.NewPlate
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	plate, err := c.catalog.AddPlate(ctx, req)
	if err != nil {
		return err
	}
	c.logger.Info("plate received from intake",
		zap.String("plate_id", plate.ID),
		zap.String("registration", plate.Registration),
	)
	return nil
}

func headerCarrier(headers amqp.Table) propagation.MapCarrier {
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		if s, ok := v.(string); ok {
			carrier[k] = s
		}
	}
	return carrier
}
