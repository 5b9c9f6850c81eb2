package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// HubMetrics are the websocket instruments. The zero value is not usable;
// build one with NewHubMetrics.
type HubMetrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	messagesSent       metric.Int64Counter
	messagesDropped    metric.Int64Counter
}

// NewHubMetrics registers the websocket instruments. A nil meter yields no-op instruments.
func NewHubMetrics(meter metric.Meter) (*HubMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("gridpulse.websocket")
	}

	connectionsTotal, err := meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections"),
	)
	if err != nil {
		return nil, err
	}

	connectionsActive, err := meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections"),
	)
	if err != nil {
		return nil, err
	}

	connectionDuration, err := meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket connections"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	messagesSent, err := meter.Int64Counter(
		"websocket_messages_sent_total",
		metric.WithDescription("Messages delivered to client send buffers by type"),
	)
	if err != nil {
		return nil, err
	}

	messagesDropped, err := meter.Int64Counter(
		"websocket_messages_dropped_total",
		metric.WithDescription("Messages dropped because a client buffer was full"),
	)
	if err != nil {
		return nil, err
	}

	return &HubMetrics{
		connectionsTotal:   connectionsTotal,
		connectionsActive:  connectionsActive,
		connectionDuration: connectionDuration,
		messagesSent:       messagesSent,
		messagesDropped:    messagesDropped,
	}, nil
}

func (m *HubMetrics) connected(ctx context.Context) {
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

func (m *HubMetrics) disconnected(ctx context.Context, d time.Duration, reason string) {
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *HubMetrics) broadcast(ctx context.Context, msgType string, delivered, dropped int) {
	attrs := metric.WithAttributes(attribute.String("message_type", msgType))
	if delivered > 0 {
		m.messagesSent.Add(ctx, int64(delivered), attrs)
	}
	if dropped > 0 {
		m.messagesDropped.Add(ctx, int64(dropped), attrs)
	}
}
