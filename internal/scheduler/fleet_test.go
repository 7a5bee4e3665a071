package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/logger"
	"github.com/stretchr/testify/require"
)

func TestFleet_StartRunsWorkersStopWaitsForExit(t *testing.T) {
	var running atomic.Int32

	f := &Fleet{logger: logger.GetLogger()}
	f.workers = []worker{
		{name: "w1", run: func(ctx context.Context) {
			running.Add(1)
			defer running.Add(-1)
			<-ctx.Done()
		}},
		{name: "w2", run: func(ctx context.Context) {
			running.Add(1)
			defer running.Add(-1)
			<-ctx.Done()
		}},
	}

	f.Start(context.Background())
	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f.Stop(stopCtx)

	require.Equal(t, int32(0), running.Load())
}
