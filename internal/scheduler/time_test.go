package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/logger"
	"github.com/stretchr/testify/require"
)

func TestNextOccurrence_LaterToday(t *testing.T) {
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	target := nextOccurrence(now, "15:30")
	require.Equal(t, time.Date(2026, 7, 31, 15, 30, 0, 0, time.UTC), target)
}

func TestNextOccurrence_RollsToTomorrowWhenPast(t *testing.T) {
	now := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	target := nextOccurrence(now, "09:00")
	require.Equal(t, time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC), target)
}

func TestWaitUntilDaily_ReturnsFalseOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := waitUntilDaily(ctx, logger.GetLogger(), "test_worker", "09:00")
	require.False(t, ok)
}
