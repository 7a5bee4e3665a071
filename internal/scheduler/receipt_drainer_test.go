package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/domain/receipt"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	failFirstN int
	calls      int
}

func (f *fakeSubmitter) Submit(_ context.Context, _ *receipt.Receipt) error {
	f.calls++
	if f.calls <= f.failFirstN {
		return errDummy{}
	}
	return nil
}

func seedReceipt(t *testing.T, st interface {
	Receipts() receipt.Repository
}, id string) *receipt.Receipt {
	t.Helper()
	now := time.Now().UTC()
	r := &receipt.Receipt{ID: id, PaymentID: "pay-" + id, Name: "wallet top-up", AmountKopeks: 50000, Quantity: 1, Status: receipt.StatusPending, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.Receipts().Enqueue(context.Background(), r))
	return r
}

func TestReceiptDrainer_SubmitsPendingReceipt(t *testing.T) {
	st := newTestStore(t)
	seedReceipt(t, st, "rec-1")

	submitter := &fakeSubmitter{}
	admin := &recordingChannel{}
	cfg := testConfig()
	cfg.Scheduler.ReceiptMaxAttempts = 10

	d := NewReceiptDrainer(st.Receipts(), submitter, notify.NewBus(logger.GetLogger(), &recordingChannel{}, admin), logger.GetLogger(), cfg)
	d.tick(context.Background())

	count, err := st.Receipts().CountPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, count)

	require.Len(t, admin.sent, 1)
	require.Equal(t, "receipt_queue_drained", admin.sent[0].Event)
}

func TestReceiptDrainer_RetriesWithinTickThenSucceeds(t *testing.T) {
	st := newTestStore(t)
	seedReceipt(t, st, "rec-2")

	submitter := &fakeSubmitter{failFirstN: 2}
	d := NewReceiptDrainer(st.Receipts(), submitter, notify.NewBus(logger.GetLogger(), &recordingChannel{}, &recordingChannel{}), logger.GetLogger(), testConfig())
	d.tick(context.Background())

	count, err := st.Receipts().CountPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.GreaterOrEqual(t, submitter.calls, 3)
}

func TestReceiptDrainer_RecordsFailureAfterExhaustingBackoff(t *testing.T) {
	st := newTestStore(t)
	seedReceipt(t, st, "rec-3")

	submitter := &fakeSubmitter{failFirstN: 999}
	admin := &recordingChannel{}
	cfg := testConfig()
	cfg.Scheduler.ReceiptMaxAttempts = 10

	d := NewReceiptDrainer(st.Receipts(), submitter, notify.NewBus(logger.GetLogger(), &recordingChannel{}, admin), logger.GetLogger(), cfg)
	d.tick(context.Background())

	count, err := st.Receipts().CountPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count, "receipt stays pending until max attempts is reached")

	found := false
	for _, msg := range admin.sent {
		if msg.Event == "receipt_drain_failures" {
			found = true
		}
	}
	require.True(t, found)
}
