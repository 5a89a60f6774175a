package notification

import (
	"context"

	"go.uber.org/zap"
)

const (
	// KindTransferReceived tells a wallet owner that funds arrived.
	KindTransferReceived = "transfer_received"
	// KindRequestCompleted tells a payee their request was paid.
	KindRequestCompleted = "request_completed"
	// KindRequestRejected tells a payee their request was declined.
	KindRequestRejected = "request_rejected"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *zap.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *zap.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		zap.String("kind", message.Kind),
		zap.String("destination", message.Destination),
		zap.String("body", message.Body),
	)
	return nil
}
