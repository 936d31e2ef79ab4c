package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/polecart/internal/config"
	"github.com/san-kum/polecart/internal/control"
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/logging"
	"github.com/san-kum/polecart/internal/render"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.ControlInterval = 5 * time.Millisecond
	cfg.Server.FPS = 240
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s := New(cfg, logging.Discard())
	t.Cleanup(s.Close)
	return s
}

func TestIndexServesScene(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `id="cart"`)
	assert.Contains(t, body, `id="pole"`)
	assert.Contains(t, body, `id="mouse"`)
	assert.Contains(t, body, `id="session"`)
	assert.Contains(t, body, "new WebSocket")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestConfigEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Policy = "mouse"
	s := newTestServer(t, cfg)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/config", nil)
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got config.Config
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "mouse", got.Policy)
	assert.Equal(t, cfg.Env.XThreshold, got.Env.XThreshold)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	stepsTotal.Add(0)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "polecart_steps_total")
	assert.Contains(t, w.Body.String(), "polecart_sessions_active")
}

func TestSetConfig(t *testing.T) {
	s := newTestServer(t, testConfig())
	next := testConfig()
	next.Preset = "wide"
	s.SetConfig(next)
	assert.Same(t, next, s.Config())
}

// readUntil reads frames until one carries an update for id that satisfies
// match.
func readUntil(t *testing.T, conn *websocket.Conn, id string, match func([]render.Op) bool) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var fr render.Frame
		require.NoError(t, conn.ReadJSON(&fr))
		for _, u := range fr.Updates {
			if u.EleId == id && match(u.Ops) {
				return
			}
		}
	}
}

func hasOp(key, value string) func([]render.Op) bool {
	return func(ops []render.Op) bool {
		for _, op := range ops {
			if op.Key == key && (value == "" || op.Value == value) {
				return true
			}
		}
		return false
	}
}

func TestWebSocketSession(t *testing.T) {
	s := newTestServer(t, testConfig())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readUntil(t, conn, SessionID, hasOp("textContent", ""))
	readUntil(t, conn, render.CartID, hasOp("x", ""))

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgMouse, X: 600}))
	readUntil(t, conn, render.MouseID, hasOp("x1", "600.00"))

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgPolicy, Name: "random"}))
	readUntil(t, conn, render.StatsID, func(ops []render.Op) bool {
		return hasOp("textContent", "")(ops) && strings.HasPrefix(ops[0].Value, "random")
	})

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func newOfflineSession(t *testing.T, s *Server) *session {
	t.Helper()
	sess, err := newSession(s, nil)
	require.NoError(t, err)
	sess.reset()
	return sess
}

func TestSessionApply(t *testing.T) {
	s := newTestServer(t, testConfig())
	sess := newOfflineSession(t, s)

	sess.apply(ClientMessage{Type: MsgMouse, X: 600})
	assert.InDelta(t, 2.4, sess.engine.State()[dynamo.IdxMouse], 1e-9)

	left := 0
	sess.apply(ClientMessage{Type: MsgAction, Action: &left})
	assert.Equal(t, "manual", sess.policyName)
	assert.Equal(t, 0, int(sess.manual.Action()))

	bad := 7
	sess.apply(ClientMessage{Type: MsgAction, Action: &bad})
	assert.Equal(t, 0, int(sess.manual.Action()))

	sess.apply(ClientMessage{Type: MsgPolicy, Name: "nope"})
	assert.Equal(t, "manual", sess.policyName)

	sess.apply(ClientMessage{Type: MsgReset})
	assert.Equal(t, 0, sess.engine.Elapsed())
	assert.Equal(t, 0.0, sess.engine.State()[dynamo.IdxMouse])
}

func TestSessionResetsAfterFall(t *testing.T) {
	cfg := testConfig()
	cfg.Policy = "right"
	s := newTestServer(t, cfg)
	sess := newOfflineSession(t, s)

	for i := 0; i < 500 && sess.episodes == 0; i++ {
		require.NoError(t, sess.step())
	}
	assert.Equal(t, 1, sess.episodes)
	assert.False(t, sess.engine.OutOfBounds())
	assert.Less(t, sess.engine.Elapsed(), 500)
}

func TestSessionPicksUpConfigOnReset(t *testing.T) {
	s := newTestServer(t, testConfig())
	sess := newOfflineSession(t, s)

	next := testConfig()
	next.Preset = "wide"
	next.Env.XThreshold = 4.8
	next.Server.MouseBurst = 3
	s.SetConfig(next)

	require.NoError(t, sess.step())
	assert.Equal(t, 2.4, sess.engine.Config().XThreshold)

	sess.apply(ClientMessage{Type: MsgReset})
	assert.Same(t, next, sess.cfg)
	assert.Equal(t, 4.8, sess.engine.Config().XThreshold)
	assert.Equal(t, 4.8, sess.renderer.Scene().Scale.Limit)
	assert.Equal(t, 3, sess.limiter.Burst())

	// The page was drawn for the old track, so the next frame carries the
	// new pole length.
	sess.engine.Render(0)
	var last render.Frame
	for len(sess.frames) > 0 {
		last = <-sess.frames
	}
	var pole []render.Op
	for _, u := range last.Updates {
		if u.EleId == render.PoleID {
			pole = u.Ops
		}
	}
	assert.Contains(t, pole, render.Op{Key: "height", Value: "62.50"})
}

func TestSessionAppliesPolicyParams(t *testing.T) {
	cfg := testConfig()
	cfg.Policy = "mouse"
	cfg.PolicyParams = map[string]float64{"ktheta": -99, "limit": 1.5}
	s := newTestServer(t, cfg)
	sess := newOfflineSession(t, s)

	mf, ok := sess.policy.(*control.MouseFollow)
	require.True(t, ok)
	assert.Equal(t, -99.0, mf.GetParams()["ktheta"])
	assert.Equal(t, 1.5, mf.Limit)

	sess.apply(ClientMessage{Type: MsgPolicy, Name: "lqr"})
	lqr, ok := sess.policy.(*control.LQR)
	require.True(t, ok)
	assert.Equal(t, -99.0, lqr.GetParams()["ktheta"])

	next := testConfig()
	next.Policy = "mouse"
	next.PolicyParams = map[string]float64{"ktheta": -60}
	s.SetConfig(next)
	sess.apply(ClientMessage{Type: MsgReset})

	lqr, ok = sess.policy.(*control.LQR)
	require.True(t, ok, "the chosen policy survives a config swap")
	assert.Equal(t, -60.0, lqr.GetParams()["ktheta"])
}

func TestUnknownMessageTypesShareOneSeries(t *testing.T) {
	s := newTestServer(t, testConfig())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readUntil(t, conn, SessionID, hasOp("textContent", ""))

	unknownBefore := testutil.ToFloat64(messagesTotal.WithLabelValues("unknown"))
	for i := 0; i < 100; i++ {
		require.NoError(t, conn.WriteJSON(ClientMessage{Type: fmt.Sprintf("junk-%d", i)}))
	}
	// Messages are read in order, so once the mouse lands the junk is counted.
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgMouse, X: 0}))
	readUntil(t, conn, render.MouseID, hasOp("x1", "0.00"))

	assert.Equal(t, unknownBefore+100, testutil.ToFloat64(messagesTotal.WithLabelValues("unknown")))
	assert.LessOrEqual(t, testutil.CollectAndCount(messagesTotal), 6)
}
