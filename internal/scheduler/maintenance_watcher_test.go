package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/panel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeHealthPanel struct {
	healthy bool
	err     error
}

func (f *fakeHealthPanel) CreateRemoteUser(context.Context, panel.RemoteUserSpec) (*panel.RemoteUser, error) {
	return nil, nil
}
func (f *fakeHealthPanel) UpdateRemoteUser(context.Context, string, panel.RemoteUserSpec) (*panel.RemoteUser, error) {
	return nil, nil
}
func (f *fakeHealthPanel) ResetTraffic(context.Context, string) error           { return nil }
func (f *fakeHealthPanel) ListDevices(context.Context, string) ([]panel.Device, error) { return nil, nil }
func (f *fakeHealthPanel) DeleteDevice(context.Context, string, string) error   { return nil }
func (f *fakeHealthPanel) GetAllSquads(context.Context) ([]panel.Squad, error)  { return nil, nil }
func (f *fakeHealthPanel) SyncSubscriptionUsage(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeHealthPanel) HealthCheck(context.Context) (*panel.HealthStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &panel.HealthStatus{Healthy: f.healthy, Message: "status"}, nil
}

type fakeCache struct {
	entries map[string]interface{}
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string]interface{}{}} }

func (c *fakeCache) Get(_ context.Context, key string) (interface{}, bool) {
	v, ok := c.entries[key]
	return v, ok
}
func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) {
	c.entries[key] = value
}
func (c *fakeCache) Delete(_ context.Context, key string)         { delete(c.entries, key) }
func (c *fakeCache) DeleteByPrefix(_ context.Context, prefix string) {
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}
func (c *fakeCache) Flush(_ context.Context) { c.entries = map[string]interface{}{} }

func TestMaintenanceWatcher_EntersAndClearsMaintenanceMode(t *testing.T) {
	admin := &recordingChannel{}
	fp := &fakeHealthPanel{healthy: false}
	c := newFakeCache()

	w := NewMaintenanceWatcher(fp, c, notify.NewBus(logger.GetLogger(), &recordingChannel{}, admin), logger.GetLogger(), testConfig())
	w.tick(context.Background())

	require.True(t, w.Active())
	require.Len(t, admin.sent, 1)
	require.Equal(t, "maintenance_mode_entered", admin.sent[0].Event)

	fp.healthy = true
	w.tick(context.Background())

	require.False(t, w.Active())
	require.Len(t, admin.sent, 2)
	require.Equal(t, "maintenance_mode_cleared", admin.sent[1].Event)
}

func TestMaintenanceWatcher_CachesHealthStatus(t *testing.T) {
	fp := &fakeHealthPanel{healthy: true}
	c := newFakeCache()

	w := NewMaintenanceWatcher(fp, c, notify.NewBus(logger.GetLogger(), &recordingChannel{}, &recordingChannel{}), logger.GetLogger(), testConfig())
	w.tick(context.Background())

	require.False(t, w.Active())
	_, ok := c.Get(context.Background(), "panel_health:v1:")
	require.True(t, ok)
}
