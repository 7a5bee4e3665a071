package notify

import (
	"context"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/svix"
)

// SvixChannel adapts internal/svix.Client into a notify.Channel: every
// event is relayed as an outbound webhook message under one application
// id, since this broker is single-tenant (unlike the teacher's
// per-tenant/per-environment application lookup).
type SvixChannel struct {
	client        *svix.Client
	applicationID string
}

// NewSvixChannel resolves (creating if necessary) the single application
// this broker's events fan out through. Returns a disabled, no-op channel
// when NotifyConfig.Svix.Enabled is false.
func NewSvixChannel(ctx context.Context, cfg *config.Configuration, client *svix.Client) (*SvixChannel, error) {
	appID := cfg.Notify.Svix.ApplicationID
	if cfg.Notify.Svix.Enabled && appID == "" {
		resolved, err := client.GetOrCreateApplication(ctx, "broker", cfg.Deployment.Mode)
		if err != nil {
			return nil, err
		}
		appID = resolved
	}
	return &SvixChannel{client: client, applicationID: appID}, nil
}

func (c *SvixChannel) Send(ctx context.Context, telegramID int64, msg Message) error {
	payload := map[string]interface{}{
		"telegram_id": telegramID,
		"text":        msg.Text,
		"extra":       msg.Extra,
	}
	return c.client.SendMessage(ctx, c.applicationID, msg.Event, payload)
}
