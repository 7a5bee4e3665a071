package notify

import (
	"context"

	"github.com/vpnbroker/broker/internal/logger"
)

// LoggingChannel is a safe default Channel that just logs — used in tests
// and wherever no real chat/admin transport is configured, so the Bus
// never has a nil channel to call.
type LoggingChannel struct {
	logger *logger.Logger
	label  string
}

func NewLoggingChannel(log *logger.Logger, label string) *LoggingChannel {
	return &LoggingChannel{logger: log, label: label}
}

func (c *LoggingChannel) Send(ctx context.Context, telegramID int64, msg Message) error {
	c.logger.WithContext(ctx).Infow("notification",
		"channel", c.label, "telegram_id", telegramID, "event", msg.Event, "text", msg.Text, "extra", msg.Extra)
	return nil
}
