package panel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/logger"
	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log, err := logger.NewLogger()
	require.NoError(t, err)

	return NewHTTPClient(config.PanelConfig{
		BaseURL:        srv.URL,
		BearerToken:    "test-token",
		RequestTimeout: 2 * time.Second,
		MaxRetries:     1,
		TrialSquadUUID: "trial-sq-1",
	}, log)
}

func TestHTTPClient_GetAllSquads_Success(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"uuid":"sq1","name":"Frankfurt","country_code":"DE","is_available":true,"is_full":false}]`))
	})

	squads, err := client.GetAllSquads(context.Background())
	require.NoError(t, err)
	require.Len(t, squads, 1)
	require.Equal(t, "sq1", squads[0].UUID)
	require.True(t, squads[0].IsAvailable)
}

func TestHTTPClient_PermanentErrorOn4xx(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad squad"}`))
	})

	_, err := client.CreateRemoteUser(context.Background(), RemoteUserSpec{TelegramID: 1})
	require.Error(t, err)
	require.True(t, ierr.Is(err, ierr.ErrPanelPermanent))
}

func TestHTTPClient_TransientErrorOn5xx(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.ResetTraffic(context.Background(), "pnl_1")
	require.Error(t, err)
	require.True(t, ierr.Is(err, ierr.ErrPanelTransient))
}

func TestHTTPClient_HealthCheck_DegradedOnPermanentRejection(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	status, err := client.HealthCheck(context.Background())
	require.NoError(t, err)
	require.False(t, status.Healthy)
}
