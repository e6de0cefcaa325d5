package notifier

import (
	"go.uber.org/zap"
)

// Notifier abstracts the delivery channel (email/SMS/push later).
type Notifier interface {
	Notify(subject, message string) error
}

// ConsoleNotifier logs notifications; the MVP delivery channel.
type ConsoleNotifier struct {
	log *zap.Logger
}

func NewConsole(log *zap.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{log: log}
}

func (c *ConsoleNotifier) Notify(subject, message string) error {
	c.log.Info("notify", zap.String("subject", subject), zap.String("message", message))
	return nil
}
