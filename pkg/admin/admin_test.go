package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/go-mclib/gateway/pkg/gateway"
	"github.com/go-mclib/gateway/pkg/metrics"
)

type fakeGateway struct {
	addr   string
	kicked []string
}

func (f *fakeGateway) Sessions() []gateway.SessionInfo {
	return []gateway.SessionInfo{{ID: 1, Username: "Steve", Relaying: true, Modules: []string{"Brand"}}}
}

func (f *fakeGateway) Kick(username, reason string) bool {
	if username != "Steve" {
		return false
	}
	f.kicked = append(f.kicked, reason)
	return true
}

func (f *fakeGateway) Addr() string { return f.addr }

func serve(t *testing.T, gw Gateway, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	New(gw, metrics.New("test"), zap.NewNop()).Router().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, &fakeGateway{}, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusOK, serve(t, &fakeGateway{addr: "127.0.0.1:25565"}, http.MethodGet, "/healthz").Code)
}

func TestSessions(t *testing.T) {
	rec := serve(t, &fakeGateway{}, http.MethodGet, "/sessions")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []gateway.SessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Steve", got[0].Username)
	assert.Equal(t, []string{"Brand"}, got[0].Modules)
}

func TestKick(t *testing.T) {
	gw := &fakeGateway{}
	assert.Equal(t, http.StatusNoContent, serve(t, gw, http.MethodDelete, "/sessions/Steve?reason=bye").Code)
	assert.Equal(t, []string{"bye"}, gw.kicked)
	assert.Equal(t, http.StatusNotFound, serve(t, gw, http.MethodDelete, "/sessions/Alex").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, gw, http.MethodPost, "/sessions").Code)
}

func TestMetrics(t *testing.T) {
	rec := serve(t, &fakeGateway{}, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_sessions_active")
}
