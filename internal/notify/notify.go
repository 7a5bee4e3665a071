// Package notify is the Notification Bus (C8): it fans a single Message
// out to whichever Channel implementations the broker is built with. It
// never returns a failure to its caller — a notification is always
// best-effort and must never roll back or retry the operation that
// triggered it (§4.8, §7 "notification failures are logged, not
// propagated").
package notify

import (
	"context"

	"github.com/vpnbroker/broker/internal/logger"
)

// Message is the channel-agnostic payload every Channel renders in its own
// way — a chat gateway turns it into a localized bot message, the admin
// channel and the logging channel render it as structured text.
type Message struct {
	Event string            // e.g. "trial_expired", "autopay_failed"
	Text  string             // human-readable fallback body
	Extra map[string]string // structured fields (subscription id, amount, ...)
}

// Channel delivers a Message somewhere. TelegramID is 0 for channels that
// aren't addressed to a specific chat (e.g. the admin channel).
type Channel interface {
	Send(ctx context.Context, telegramID int64, msg Message) error
}

// ChatGateway is the spec's "chat UI layer" interface (§1 Non-goals: no
// real Telegram client is implemented here, only this contract).
type ChatGateway = Channel

// AdminChannel fans operational events to whoever watches the admin feed.
type AdminChannel = Channel

// Bus owns one ChatGateway, one AdminChannel, and any number of extra
// fan-out channels (e.g. the Svix webhook channel). Every Notify* method
// swallows and logs channel errors.
type Bus struct {
	chat   ChatGateway
	admin  AdminChannel
	extra  []Channel
	logger *logger.Logger
}

func NewBus(log *logger.Logger, chat ChatGateway, admin AdminChannel, extra ...Channel) *Bus {
	return &Bus{chat: chat, admin: admin, extra: extra, logger: log}
}

// NotifyUser sends msg to the given chat through the ChatGateway.
func (b *Bus) NotifyUser(ctx context.Context, telegramID int64, msg Message) {
	if err := b.chat.Send(ctx, telegramID, msg); err != nil {
		b.logger.WithContext(ctx).Errorw("chat notification failed", "telegram_id", telegramID, "event", msg.Event, "error", err)
	}
	b.fanOutExtra(ctx, telegramID, msg)
}

// NotifyAdmin sends msg to the admin channel.
func (b *Bus) NotifyAdmin(ctx context.Context, msg Message) {
	if err := b.admin.Send(ctx, 0, msg); err != nil {
		b.logger.WithContext(ctx).Errorw("admin notification failed", "event", msg.Event, "error", err)
	}
	b.fanOutExtra(ctx, 0, msg)
}

func (b *Bus) fanOutExtra(ctx context.Context, telegramID int64, msg Message) {
	for _, ch := range b.extra {
		if err := ch.Send(ctx, telegramID, msg); err != nil {
			b.logger.WithContext(ctx).Warnw("extra notification channel failed", "event", msg.Event, "error", err)
		}
	}
}
