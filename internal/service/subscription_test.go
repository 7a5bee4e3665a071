package service

import (
	"context"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/domain/promogroup"
	"github.com/vpnbroker/broker/internal/domain/server"
	"github.com/vpnbroker/broker/internal/domain/user"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/vpnbroker/broker/internal/panel"
	"github.com/vpnbroker/broker/internal/pricing"
	"github.com/vpnbroker/broker/internal/store"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakePanel records every call instead of reaching out over HTTP, so these
// tests exercise the service's panel-sync ordering without network I/O.
type fakePanel struct {
	created int
	updated int
	lastSpec panel.RemoteUserSpec
}

func (f *fakePanel) CreateRemoteUser(_ context.Context, spec panel.RemoteUserSpec) (*panel.RemoteUser, error) {
	f.created++
	f.lastSpec = spec
	return &panel.RemoteUser{UUID: "panel-uuid-1", SubscriptionURL: "https://panel.example/sub/1"}, nil
}

func (f *fakePanel) UpdateRemoteUser(_ context.Context, _ string, spec panel.RemoteUserSpec) (*panel.RemoteUser, error) {
	f.updated++
	f.lastSpec = spec
	return &panel.RemoteUser{UUID: "panel-uuid-1", SubscriptionURL: "https://panel.example/sub/1"}, nil
}

func (f *fakePanel) ResetTraffic(_ context.Context, _ string) error { return nil }
func (f *fakePanel) ListDevices(_ context.Context, _ string) ([]panel.Device, error) { return nil, nil }
func (f *fakePanel) DeleteDevice(_ context.Context, _, _ string) error { return nil }
func (f *fakePanel) GetAllSquads(_ context.Context) ([]panel.Squad, error) { return nil, nil }
func (f *fakePanel) SyncSubscriptionUsage(_ context.Context, _ string) (decimal.Decimal, error) {
	return decimal.NewFromInt(5), nil
}
func (f *fakePanel) HealthCheck(_ context.Context) (*panel.HealthStatus, error) {
	return &panel.HealthStatus{Healthy: true}, nil
}

type recordingChannel struct{ sent []notify.Message }

func (c *recordingChannel) Send(_ context.Context, _ int64, msg notify.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func newTestSubscriptionService(t *testing.T) (*SubscriptionService, *store.Store, *config.Configuration, *fakePanel) {
	t.Helper()
	cfg := config.GetDefaultConfig()
	log := logger.GetLogger()
	st := store.New(log)
	fp := &fakePanel{}
	events := NewEventLogService(st.Events(), log)
	bus := notify.NewBus(log, &recordingChannel{}, &recordingChannel{})
	svc := NewSubscriptionService(st, pricing.NewEngine(cfg.Pricing), fp, events, bus, cfg, log)

	ctx := context.Background()
	require.NoError(t, st.PromoGroups().Create(ctx, &promogroup.PromoGroup{ID: "default", Name: "default", IsDefault: true}))
	return svc, st, cfg, fp
}

func seedTestUser(t *testing.T, st *store.Store, balance types.Kopeks) *user.User {
	t.Helper()
	u := user.NewUser(777, types.LanguageRU, "default", time.Now().UTC())
	u.BalanceKopeks = balance
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

func seedTestServer(t *testing.T, st *store.Store, id string, priceMonthly types.Kopeks) *server.Server {
	t.Helper()
	sv := &server.Server{ID: id, SquadUUID: id + "-squad", DisplayName: id, PriceKopeksPerMonth: priceMonthly, IsAvailable: true}
	require.NoError(t, st.Servers().Create(context.Background(), sv))
	return sv
}

// S1 — trial activation.
func TestSubscriptionService_CreateTrial_S1(t *testing.T) {
	svc, st, cfg, fp := newTestSubscriptionService(t)
	u := seedTestUser(t, st, 0)

	sub, err := svc.CreateTrial(context.Background(), u.ID)
	require.NoError(t, err)

	require.True(t, sub.IsTrial)
	require.Equal(t, cfg.Pricing.TrialTrafficGB, sub.TrafficLimitGB)
	require.Equal(t, cfg.Pricing.TrialDeviceLimit, sub.DeviceLimit)
	require.Equal(t, []string{cfg.Panel.TrialSquadUUID}, sub.ConnectedSquads)
	require.WithinDuration(t, sub.StartDate.Add(time.Duration(cfg.Pricing.TrialDurationDays)*24*time.Hour), sub.EndDate, time.Second)
	require.Equal(t, 1, fp.created)

	got, err := st.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.False(t, got.HasHadPaidSubscription)

	count, err := svc.events.CountByType(context.Background(), types.EventTrialActivated, time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestSubscriptionService_CreateTrial_RefusesSecondTrial(t *testing.T) {
	svc, st, _, _ := newTestSubscriptionService(t)
	u := seedTestUser(t, st, 0)

	_, err := svc.CreateTrial(context.Background(), u.ID)
	require.NoError(t, err)

	_, err = svc.CreateTrial(context.Background(), u.ID)
	require.Error(t, err)
}

// S2 — paid purchase from trial, exact balance.
func TestSubscriptionService_Purchase_S2(t *testing.T) {
	svc, st, _, fp := newTestSubscriptionService(t)
	u := seedTestUser(t, st, 124000)
	sv := seedTestServer(t, st, "srv-1", 10000)

	sub, quote, err := svc.Purchase(context.Background(), u.ID, PurchaseConfig{
		PeriodDays: 30, TrafficGB: 100, DeviceLimit: 3, ServerIDs: []string{sv.ID},
	})
	require.NoError(t, err)
	require.EqualValues(t, 124000, quote.TotalKopeks)

	require.False(t, sub.IsTrial)
	require.EqualValues(t, 0, sub.TrafficUsedGB.IntPart())

	got, err := st.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, got.BalanceKopeks)
	require.True(t, got.HasHadPaidSubscription)
	require.Equal(t, 1, fp.created)

	rows, err := st.Subscriptions().ListServers(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 10000, rows[0].PaidPriceKopeks)
}

func TestSubscriptionService_Purchase_InsufficientFunds_LeavesBalanceUntouched(t *testing.T) {
	svc, st, _, _ := newTestSubscriptionService(t)
	u := seedTestUser(t, st, 123999)
	sv := seedTestServer(t, st, "srv-1", 10000)

	_, _, err := svc.Purchase(context.Background(), u.ID, PurchaseConfig{
		PeriodDays: 30, TrafficGB: 100, DeviceLimit: 3, ServerIDs: []string{sv.ID},
	})
	require.Error(t, err)

	got, err := st.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 123999, got.BalanceKopeks)

	_, err = st.Subscriptions().GetByUserID(context.Background(), u.ID)
	require.Error(t, err)
}

// S4 — extend mid-cycle with a promo group discount.
func TestSubscriptionService_Extend_S4(t *testing.T) {
	svc, st, cfg, _ := newTestSubscriptionService(t)

	require.NoError(t, st.PromoGroups().Update(context.Background(), &promogroup.PromoGroup{
		ID: "default", Name: "default", IsDefault: true, ServerDiscountPercent: 25,
	}))

	u := seedTestUser(t, st, 106500)
	sv := seedTestServer(t, st, "srv-1", 10000)

	sub, _, err := svc.Purchase(context.Background(), u.ID, PurchaseConfig{
		PeriodDays: 30, TrafficGB: 0, DeviceLimit: 3, ServerIDs: []string{sv.ID},
	})
	require.NoError(t, err)

	got, err := st.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	got.BalanceKopeks = 291500
	require.NoError(t, st.Users().Update(context.Background(), got))

	extended, quote, err := svc.Extend(context.Background(), u.ID, 90)
	require.NoError(t, err)
	require.EqualValues(t, 291500, quote.TotalKopeks)
	require.WithinDuration(t, sub.EndDate.Add(90*24*time.Hour), extended.EndDate, time.Second)
	_ = cfg
}

// S6 — add server post-purchase, proration with 20 days left.
func TestSubscriptionService_AddServers_S6(t *testing.T) {
	svc, st, _, _ := newTestSubscriptionService(t)
	u := seedTestUser(t, st, 109000)

	// Seed a subscription with 20 days remaining by purchasing at 0 cost
	// (unlimited traffic, no servers, default device limit) then editing
	// EndDate directly, mirroring how a real 20-days-remaining state would
	// arise from natural elapsed time.
	existing, _, err := svc.Purchase(context.Background(), u.ID, PurchaseConfig{PeriodDays: 30, TrafficGB: 0, DeviceLimit: 3})
	require.NoError(t, err)
	existing.EndDate = time.Now().UTC().Add(20 * 24 * time.Hour)
	require.NoError(t, st.Subscriptions().Update(context.Background(), existing))

	sv := seedTestServer(t, st, "srv-new", 10000)
	quote, err := svc.AddServers(context.Background(), u.ID, []string{sv.ID})
	require.NoError(t, err)
	require.EqualValues(t, 10000, quote.TotalKopeks)

	rows, err := st.Subscriptions().ListServers(context.Background(), existing.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 10000, rows[0].PaidPriceKopeks)
}

func TestSubscriptionService_SyncUsage_PopulatesTrafficUsed(t *testing.T) {
	svc, st, _, _ := newTestSubscriptionService(t)
	u := seedTestUser(t, st, 0)

	sub, err := svc.CreateTrial(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, sub.PanelUUID)

	got, err := svc.SyncUsage(context.Background(), u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, got.TrafficUsedGB.IntPart())
}
