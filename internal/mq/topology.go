package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeFlows     Exchange = "formflow.flows"
	ExchangeResponses Exchange = "formflow.responses"
	ExchangeDLQ       Exchange = "formflow.dlq"
)

// Queues — имена очередей.
const (
	QueueAnalyticsFlows     Queue = "analytics.flows"
	QueueAnalyticsResponses Queue = "analytics.responses"
	QueueDLQAnalytics       Queue = "dlq.analytics"
)

// Routing keys.
const (
	RoutingKeyFlowPublished     RoutingKey = "flow.published"
	RoutingKeyResponseSubmitted RoutingKey = "response.submitted"
	RoutingKeyDLQAnalytics      RoutingKey = "analytics"
)

// exchangeDecl — объявление обменника.
type exchangeDecl struct {
	name Exchange
	kind string
}

// queueDecl — объявление очереди.
type queueDecl struct {
	name Queue
	args amqp.Table
}

// binding — привязка очереди к обменнику.
type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// Topology — полный набор объявлений RabbitMQ для formflow.
type Topology struct {
	exchanges []exchangeDecl
	queues    []queueDecl
	bindings  []binding
}

// DefaultTopology возвращает топологию сервиса.
//
//	formflow.flows (topic)
//	└── analytics.flows [routing: flow.published]
//	formflow.responses (topic)
//	└── analytics.responses [routing: response.submitted], DLQ: dlq.analytics
//	formflow.dlq (direct)
//	└── dlq.analytics [routing: analytics]
func DefaultTopology() Topology {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQAnalytics),
	}

	return Topology{
		exchanges: []exchangeDecl{
			{ExchangeFlows, amqp.ExchangeTopic},
			{ExchangeResponses, amqp.ExchangeTopic},
			{ExchangeDLQ, amqp.ExchangeDirect},
		},
		queues: []queueDecl{
			{QueueAnalyticsFlows, dlqArgs},
			{QueueAnalyticsResponses, dlqArgs},
			{QueueDLQAnalytics, nil},
		},
		bindings: []binding{
			{QueueAnalyticsFlows, RoutingKeyFlowPublished, ExchangeFlows},
			{QueueAnalyticsResponses, RoutingKeyResponseSubmitted, ExchangeResponses},
			{QueueDLQAnalytics, RoutingKeyDLQAnalytics, ExchangeDLQ},
		},
	}
}

// Queues возвращает имена объявляемых очередей.
func (t Topology) Queues() []Queue {
	out := make([]Queue, len(t.queues))
	for i, q := range t.queues {
		out[i] = q.name
	}
	return out
}

// SetupTopology объявляет exchanges, queues и bindings. Операции идемпотентны.
func SetupTopology(ctx context.Context, conn *Connection) error {
	topo := DefaultTopology()
	return conn.WithChannel(ctx, topo.declare)
}

func (t Topology) declare(ch *amqp.Channel) error {
	for _, ex := range t.exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	for _, q := range t.queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	for _, b := range t.bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}
