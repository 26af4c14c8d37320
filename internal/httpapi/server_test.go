package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screener/screener-go/internal/conf"
	"github.com/screener/screener-go/internal/errors"
	"github.com/screener/screener-go/internal/session"
	"github.com/screener/screener-go/internal/switcher"
)

// stubControl is a canned Control implementation recording calls.
type stubControl struct {
	state     switcher.State
	ctrlState string
	cuts      []int
	golfMode  []bool
	session   *session.GolfSessionInfo
}

func (s *stubControl) SwitcherState() switcher.State { return s.state }
func (s *stubControl) ControllerState() string       { return s.ctrlState }

func (s *stubControl) RequestCut(index int, reason string) error {
	s.cuts = append(s.cuts, index)
	return nil
}

func (s *stubControl) SetGolfMode(enabled bool) error {
	s.golfMode = append(s.golfMode, enabled)
	return nil
}

func (s *stubControl) StartSession(golferID string) (*session.GolfSessionInfo, error) {
	if s.session != nil && s.session.Active() {
		return nil, errors.NewStd("a session is already active")
	}
	s.session = &session.GolfSessionInfo{ID: "test-session", GolferID: golferID, StartTime: time.Now()}
	return s.session, nil
}

func (s *stubControl) StopSession() (*session.GolfSessionInfo, error) {
	if s.session == nil || !s.session.Active() {
		return nil, errors.NewStd("no active session")
	}
	end := time.Now()
	s.session.EndTime = &end
	return s.session, nil
}

func (s *stubControl) CurrentSession() *session.GolfSessionInfo { return s.session }

func (s *stubControl) CalibrateIdleReference() error { return nil }

func newTestServer(control Control) *Server {
	settings := &conf.Settings{}
	settings.Realtime.HTTP.Listen = "127.0.0.1:0"
	settings.Version = "test"
	return New(settings, control, nil)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(&stubControl{})
	rec := doRequest(t, s, http.MethodGet, "/api/v1/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
}

func TestSwitcherState(t *testing.T) {
	control := &stubControl{
		state:     switcher.State{ActiveSourceIndex: 1, GolfModeEnabled: true},
		ctrlState: "following_shot",
	}
	s := newTestServer(control)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/switcher", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["active_source_index"])
	assert.Equal(t, true, resp["golf_mode_enabled"])
	assert.Equal(t, "following_shot", resp["controller_state"])
}

func TestManualCut(t *testing.T) {
	control := &stubControl{}
	s := newTestServer(control)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/switcher/cut", `{"source": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{1}, control.cuts)
}

func TestManualCutRejectsOutOfRange(t *testing.T) {
	control := &stubControl{}
	s := newTestServer(control)

	for _, body := range []string{`{"source": 2}`, `{"source": -1}`} {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/switcher/cut", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
	assert.Empty(t, control.cuts)
}

func TestGolfModeToggle(t *testing.T) {
	control := &stubControl{}
	s := newTestServer(control)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/switcher/golfmode", `{"enabled": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, s, http.MethodPost, "/api/v1/switcher/golfmode", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []bool{true, false}, control.golfMode)
}

func TestSessionLifecycle(t *testing.T) {
	control := &stubControl{}
	s := newTestServer(control)

	// No session yet.
	rec := doRequest(t, s, http.MethodGet, "/api/v1/session", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/session/start", `{"golfer_id": "alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp["golfer_id"])
	assert.Equal(t, true, resp["active"])

	// A second start conflicts.
	rec = doRequest(t, s, http.MethodPost, "/api/v1/session/start", `{"golfer_id": "bob"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/session/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/session/stop", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSequencesWithoutDatastore(t *testing.T) {
	s := newTestServer(&stubControl{})

	rec := doRequest(t, s, http.MethodGet, "/api/v1/sequences", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/sessions/abc/sequences", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCalibrate(t *testing.T) {
	s := newTestServer(&stubControl{})
	rec := doRequest(t, s, http.MethodPost, "/api/v1/switcher/calibrate", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
