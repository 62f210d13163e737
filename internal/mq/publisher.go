package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeFlowPublished     MessageType = "flow.published"
	MessageTypeResponseSubmitted MessageType = "response.submitted"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID и текущим временем.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// FlowPublishedPayload — payload события публикации flow.
type FlowPublishedPayload struct {
	FlowID   uuid.UUID `json:"flow_id"`
	TenantID string    `json:"tenant_id"`
	Version  int       `json:"version"`
	Title    string    `json:"title"`
	Steps    int       `json:"steps"`
}

// ResponseSubmittedPayload — payload события приёма ответа.
type ResponseSubmittedPayload struct {
	ResponseID uuid.UUID `json:"response_id"`
	FlowID     uuid.UUID `json:"flow_id"`
	Version    int       `json:"version"`
	Completed  bool      `json:"completed"`
	Answered   int       `json:"answered"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishFlowPublished публикует событие о новой версии flow.
func (p *Publisher) PublishFlowPublished(ctx context.Context, payload FlowPublishedPayload) error {
	return p.Publish(ctx, ExchangeFlows, RoutingKeyFlowPublished, NewMessage(MessageTypeFlowPublished, payload))
}

// PublishResponseSubmitted публикует событие о принятом ответе.
// Потребитель: analytics worker.
func (p *Publisher) PublishResponseSubmitted(ctx context.Context, payload ResponseSubmittedPayload) error {
	return p.Publish(ctx, ExchangeResponses, RoutingKeyResponseSubmitted, NewMessage(MessageTypeResponseSubmitted, payload))
}
