package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/vpnbroker/broker/internal/logger"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	sent []Message
	err  error
}

func (c *recordingChannel) Send(_ context.Context, _ int64, msg Message) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func TestBus_NotifyUser_SwallowsChannelError(t *testing.T) {
	log, err := logger.NewLogger()
	require.NoError(t, err)

	chat := &recordingChannel{err: errors.New("telegram down")}
	admin := &recordingChannel{}
	bus := NewBus(log, chat, admin)

	require.NotPanics(t, func() {
		bus.NotifyUser(context.Background(), 42, Message{Event: "trial_expired", Text: "your trial ended"})
	})
	require.Len(t, chat.sent, 1)
	require.Equal(t, "trial_expired", chat.sent[0].Event)
}

func TestBus_NotifyAdmin_FansOutToExtraChannels(t *testing.T) {
	log, err := logger.NewLogger()
	require.NoError(t, err)

	chat := &recordingChannel{}
	admin := &recordingChannel{}
	extra := &recordingChannel{}
	bus := NewBus(log, chat, admin, extra)

	bus.NotifyAdmin(context.Background(), Message{Event: "autopay_failed"})

	require.Len(t, admin.sent, 1)
	require.Len(t, extra.sent, 1)
	require.Empty(t, chat.sent)
}
