package service

import (
	"context"
	"encoding/json"

	"career-chat-be/internal/pkg/logger"
	"career-chat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// EventDelivery pushes an event to every live connection of one user.
type EventDelivery interface {
	Send(userID uuid.UUID, envelope events.Envelope)
}

// EventForwarder hands an event to an external bus.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	delivery   EventDelivery
	forwarder  EventForwarder
	logger     logger.ILogger
}

// NewConsumerService wires the in-process bus to live delivery and the external bus.
// delivery and forwarder are optional.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	delivery EventDelivery,
	forwarder EventForwarder,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		delivery:   delivery,
		forwarder:  forwarder,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks. Events are notifications and a failed push is not retried.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var envelope events.Envelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal event", map[string]interface{}{"error": err.Error(), "message_id": msg.UUID})
		return
	}

	if cs.delivery != nil {
		if raw, ok := envelope.Data["user_id"].(string); ok {
			if userID, err := uuid.Parse(raw); err == nil {
				cs.delivery.Send(userID, envelope)
			}
		}
	}

	if cs.forwarder != nil {
		if err := cs.forwarder.Publish(ctx, envelope.Event()); err != nil {
			cs.logger.Warn("CONSUMER", "Failed to forward event", map[string]interface{}{"error": err.Error(), "type": envelope.Type})
		}
	}

	cs.logger.Debug("CONSUMER", "Event dispatched", map[string]interface{}{"type": envelope.Type, "message_id": msg.UUID})
}
