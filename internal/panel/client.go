// Package panel is the Panel Adapter (C3): the only code in the broker
// that talks to the upstream VPN control-plane over HTTP. Every other
// component reaches the panel exclusively through the Client interface,
// never through a raw URL (§6 "External interfaces").
package panel

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RemoteUserSpec is what the broker asks the panel to provision or update
// for a subscription. Zero-value SquadUUIDs/TrafficLimitGB mean "no
// connected servers" / "unlimited" respectively, mirroring the domain
// model's own zero-value conventions (§3 "Subscription").
type RemoteUserSpec struct {
	TelegramID     int64
	SquadUUIDs     []string
	TrafficLimitGB int
	DeviceLimit    int
	ExpireAt       time.Time
}

// RemoteUser is the panel's view of a provisioned user, returned by
// CreateRemoteUser/UpdateRemoteUser and used to populate
// Subscription.PanelUUID/SubscriptionURL (§3 "Subscription").
type RemoteUser struct {
	UUID            string
	SubscriptionURL string
	TrafficUsedGB   decimal.Decimal
}

// Device is one client device connected under a panel user.
type Device struct {
	ID          string
	Name        string
	ConnectedAt time.Time
}

// Squad is one selectable VPN exit group as reported by the panel — the
// upstream counterpart of domain/server.Server, as returned by
// GetAllSquads (§3 "Server").
type Squad struct {
	UUID        string
	DisplayName string
	CountryCode string
	IsAvailable bool
	IsFull      bool
}

// HealthStatus is the panel-wide health signal consumed by the
// maintenance flag watcher (§4.13).
type HealthStatus struct {
	Healthy bool
	Message string
}

// Client is the Panel Adapter's contract. Every method is safe to retry:
// implementations classify failures as ierr.ErrPanelTransient (retry may
// help) or ierr.ErrPanelPermanent (retry will not) per §4.4 step 6 and §7.
type Client interface {
	CreateRemoteUser(ctx context.Context, spec RemoteUserSpec) (*RemoteUser, error)
	UpdateRemoteUser(ctx context.Context, panelUUID string, spec RemoteUserSpec) (*RemoteUser, error)
	ResetTraffic(ctx context.Context, panelUUID string) error
	ListDevices(ctx context.Context, panelUUID string) ([]Device, error)
	DeleteDevice(ctx context.Context, panelUUID, deviceID string) error
	GetAllSquads(ctx context.Context) ([]Squad, error)
	SyncSubscriptionUsage(ctx context.Context, panelUUID string) (decimal.Decimal, error)
	HealthCheck(ctx context.Context) (*HealthStatus, error)
}
