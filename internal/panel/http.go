package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
)

// HTTPClient is the concrete Client backed by hashicorp/go-retryablehttp:
// transport errors and 5xx responses are retried with exponential backoff
// up to cfg.MaxRetries, 4xx responses are never retried and surface as
// ierr.ErrPanelPermanent (§4.4, §6 "PanelConfig"), grounded on the
// teacher's httpclient-over-http.Client shape, adapted to a retrying
// transport since the panel is now a genuinely unreliable upstream rather
// than an in-process call.
type HTTPClient struct {
	http       *retryablehttp.Client
	baseURL    string
	bearer     string
	squadTrial string
}

// NewHTTPClient builds a Client from PanelConfig. The retryablehttp
// client's own logger is silenced in favor of the broker's structured
// logger, consulted only at the call sites below.
func NewHTTPClient(cfg config.PanelConfig, log *logger.Logger) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.HTTPClient.Timeout = cfg.RequestTimeout
	rc.Logger = nil
	rc.ErrorHandler = func(resp *http.Response, err error, numTries int) (*http.Response, error) {
		log.Errorw("panel request exhausted retries", "error", err, "attempts", numTries)
		if err != nil {
			return resp, err
		}
		return resp, fmt.Errorf("panel request failed after %d attempts", numTries)
	}

	return &HTTPClient{
		http:       rc,
		baseURL:    cfg.BaseURL,
		bearer:     cfg.BearerToken,
		squadTrial: cfg.TrialSquadUUID,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return newPermanentError(0, nil, "failed to encode panel request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return newPermanentError(0, nil, "failed to build panel request")
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return newTransientError(err, "panel unreachable after retries")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return newTransientError(err, "failed reading panel response")
	}

	if resp.StatusCode >= 500 {
		return newTransientError(fmt.Errorf("panel returned %d", resp.StatusCode), "panel server error")
	}
	if resp.StatusCode >= 400 {
		return newPermanentError(resp.StatusCode, respBody, "panel rejected the request")
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return newTransientError(err, "failed decoding panel response")
		}
	}
	return nil
}

type remoteUserDTO struct {
	UUID            string    `json:"uuid"`
	SubscriptionURL string    `json:"subscription_url"`
	TrafficUsedGB   string    `json:"traffic_used_gb"`
	SquadUUIDs      []string  `json:"active_internal_squads"`
	TrafficLimitGB  int       `json:"traffic_limit_gb"`
	DeviceLimit     int       `json:"hwid_device_limit"`
	ExpireAt        time.Time `json:"expire_at"`
}

func toRemoteUser(dto remoteUserDTO) *RemoteUser {
	used, _ := decimal.NewFromString(dto.TrafficUsedGB)
	return &RemoteUser{UUID: dto.UUID, SubscriptionURL: dto.SubscriptionURL, TrafficUsedGB: used}
}

func specToDTO(telegramID int64, spec RemoteUserSpec) remoteUserDTO {
	return remoteUserDTO{
		SquadUUIDs:     spec.SquadUUIDs,
		TrafficLimitGB: spec.TrafficLimitGB,
		DeviceLimit:    spec.DeviceLimit,
		ExpireAt:       spec.ExpireAt,
	}
}

func (c *HTTPClient) CreateRemoteUser(ctx context.Context, spec RemoteUserSpec) (*RemoteUser, error) {
	var dto remoteUserDTO
	if err := c.do(ctx, http.MethodPost, "/api/users", specToDTO(spec.TelegramID, spec), &dto); err != nil {
		return nil, err
	}
	return toRemoteUser(dto), nil
}

func (c *HTTPClient) UpdateRemoteUser(ctx context.Context, panelUUID string, spec RemoteUserSpec) (*RemoteUser, error) {
	var dto remoteUserDTO
	if err := c.do(ctx, http.MethodPatch, "/api/users/"+panelUUID, specToDTO(spec.TelegramID, spec), &dto); err != nil {
		return nil, err
	}
	return toRemoteUser(dto), nil
}

func (c *HTTPClient) ResetTraffic(ctx context.Context, panelUUID string) error {
	return c.do(ctx, http.MethodPost, "/api/users/"+panelUUID+"/reset-traffic", nil, nil)
}

type deviceDTO struct {
	ID          string    `json:"hwid"`
	Name        string    `json:"device_name"`
	ConnectedAt time.Time `json:"connected_at"`
}

func (c *HTTPClient) ListDevices(ctx context.Context, panelUUID string) ([]Device, error) {
	var dtos []deviceDTO
	if err := c.do(ctx, http.MethodGet, "/api/users/"+panelUUID+"/devices", nil, &dtos); err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(dtos))
	for _, d := range dtos {
		devices = append(devices, Device{ID: d.ID, Name: d.Name, ConnectedAt: d.ConnectedAt})
	}
	return devices, nil
}

func (c *HTTPClient) DeleteDevice(ctx context.Context, panelUUID, deviceID string) error {
	return c.do(ctx, http.MethodDelete, "/api/users/"+panelUUID+"/devices/"+deviceID, nil, nil)
}

type squadDTO struct {
	UUID        string `json:"uuid"`
	DisplayName string `json:"name"`
	CountryCode string `json:"country_code"`
	IsAvailable bool   `json:"is_available"`
	IsFull      bool   `json:"is_full"`
}

func (c *HTTPClient) GetAllSquads(ctx context.Context) ([]Squad, error) {
	var dtos []squadDTO
	if err := c.do(ctx, http.MethodGet, "/api/internal-squads", nil, &dtos); err != nil {
		return nil, err
	}
	squads := make([]Squad, 0, len(dtos))
	for _, d := range dtos {
		squads = append(squads, Squad{
			UUID: d.UUID, DisplayName: d.DisplayName, CountryCode: d.CountryCode,
			IsAvailable: d.IsAvailable, IsFull: d.IsFull,
		})
	}
	return squads, nil
}

func (c *HTTPClient) SyncSubscriptionUsage(ctx context.Context, panelUUID string) (decimal.Decimal, error) {
	var dto remoteUserDTO
	if err := c.do(ctx, http.MethodGet, "/api/users/"+panelUUID, nil, &dto); err != nil {
		return decimal.Zero, err
	}
	used, _ := decimal.NewFromString(dto.TrafficUsedGB)
	return used, nil
}

func (c *HTTPClient) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil); err != nil {
		if ierrIsPermanent(err) {
			return &HealthStatus{Healthy: false, Message: err.Error()}, nil
		}
		return nil, err
	}
	return &HealthStatus{Healthy: true}, nil
}
