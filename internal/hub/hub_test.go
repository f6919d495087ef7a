package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
	"github.com/roadpulse/roadpulse-backend-go/internal/observability"
)

type testPeer struct {
	t    *testing.T
	conn *websocket.Conn
}

func newTestHub(t *testing.T, submit ReportFunc) (*Hub, *httptest.Server) {
	t.Helper()
	h := New(30*time.Second, submit, observability.NewMetricsForTesting())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r)
	}))
	t.Cleanup(srv.Close)
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *testPeer {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testPeer{t: t, conn: conn}
}

func (p *testPeer) sendEnvelope(msgType string, payload interface{}) {
	p.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(p.t, err)
	require.NoError(p.t, p.conn.WriteJSON(models.Envelope{Type: msgType, Payload: data}))
}

// readEnvelope blocks for the next envelope, failing after a short deadline.
func (p *testPeer) readEnvelope() models.Envelope {
	p.t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env models.Envelope
	require.NoError(p.t, p.conn.ReadJSON(&env))
	return env
}

// expectSilence asserts nothing arrives within the window. The deadline error
// sticks to the connection, so callers must not read from it afterwards.
func (p *testPeer) expectSilence(d time.Duration) {
	p.t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(d))
	var env models.Envelope
	err := p.conn.ReadJSON(&env)
	require.Error(p.t, err, "unexpected message: %+v", env)
}

func (p *testPeer) join(sessionID string) {
	p.t.Helper()
	p.sendEnvelope(models.MsgTypeJoin, models.JoinPayload{SessionID: sessionID})
	env := p.readEnvelope()
	require.Equal(p.t, models.MsgTypeAck, env.Type)
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSpeedBumpBroadcastReachesOthersNotSender(t *testing.T) {
	var submitted atomic.Int32
	h, srv := newTestHub(t, func(req models.ReportRequest) (*models.MergeResult, error) {
		submitted.Add(1)
		return &models.MergeResult{Created: true, RecordID: 7, Verifications: 1}, nil
	})

	sender := dial(t, srv)
	other1 := dial(t, srv)
	other2 := dial(t, srv)
	waitForClients(t, h, 3)

	sender.sendEnvelope(models.MsgTypeSpeedBump, models.ReportRequest{
		Latitude: 37.775, Longitude: -122.4194, Intensity: 6,
	})

	// Sender gets the ack, and only the ack
	ack := sender.readEnvelope()
	assert.Equal(t, models.MsgTypeAck, ack.Type)
	sender.expectSilence(300 * time.Millisecond)

	// The other two get the enriched broadcast regardless of session
	for _, p := range []*testPeer{other1, other2} {
		env := p.readEnvelope()
		require.Equal(t, models.MsgTypeSpeedBump, env.Type)
		var got struct {
			Latitude      float64 `json:"latitude"`
			Intensity     int     `json:"intensity"`
			Created       bool    `json:"created"`
			Verifications int     `json:"verifications"`
		}
		require.NoError(t, json.Unmarshal(env.Payload, &got))
		assert.InDelta(t, 37.775, got.Latitude, 1e-9)
		assert.Equal(t, 6, got.Intensity)
		assert.True(t, got.Created)
		assert.Equal(t, 1, got.Verifications)
	}

	assert.EqualValues(t, 1, submitted.Load())
}

func TestSpeedBumpOutOfRangeRejectedOverWebsocket(t *testing.T) {
	var submitted atomic.Int32
	h, srv := newTestHub(t, func(req models.ReportRequest) (*models.MergeResult, error) {
		submitted.Add(1)
		return &models.MergeResult{Created: true, RecordID: 1, Verifications: 1}, nil
	})

	sender := dial(t, srv)
	other := dial(t, srv)
	waitForClients(t, h, 2)

	sender.sendEnvelope(models.MsgTypeSpeedBump, models.ReportRequest{
		Latitude: 37.775, Longitude: -122.4194, Intensity: 100,
	})

	// Error envelope to the sender; nothing submitted, nothing broadcast
	env := sender.readEnvelope()
	require.Equal(t, models.MsgTypeError, env.Type)
	var e models.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &e))
	assert.Contains(t, e.Message, "intensity")

	other.expectSilence(300 * time.Millisecond)
	assert.EqualValues(t, 0, submitted.Load())
}

func TestLocationUpdateIsSessionScoped(t *testing.T) {
	h, srv := newTestHub(t, nil)

	a := dial(t, srv)
	b := dial(t, srv)
	c := dial(t, srv)
	waitForClients(t, h, 3)

	a.join("trip-1")
	b.join("trip-1")
	c.join("trip-2")

	a.sendEnvelope(models.MsgTypeLocation, models.LocationPayload{Latitude: 1, Longitude: 2, Speed: 8})

	ack := a.readEnvelope()
	assert.Equal(t, models.MsgTypeAck, ack.Type)

	// Same session receives the relay; the sender and other sessions do not
	env := b.readEnvelope()
	require.Equal(t, models.MsgTypeLocation, env.Type)
	var loc models.LocationPayload
	require.NoError(t, json.Unmarshal(env.Payload, &loc))
	assert.InDelta(t, 1.0, loc.Latitude, 1e-9)

	a.expectSilence(300 * time.Millisecond)
	c.expectSilence(300 * time.Millisecond)
}

func TestSessionAffinityLastWriteWins(t *testing.T) {
	h, srv := newTestHub(t, nil)

	a := dial(t, srv)
	b := dial(t, srv)
	o := dial(t, srv)
	waitForClients(t, h, 3)

	a.join("trip-1")
	b.join("trip-2")
	o.join("trip-1")

	// b is in trip-2; only o receives. Reading o's copy pins the first
	// broadcast before b's re-join below.
	a.sendEnvelope(models.MsgTypeLocation, models.LocationPayload{Latitude: 1})
	require.Equal(t, models.MsgTypeAck, a.readEnvelope().Type)
	require.Equal(t, models.MsgTypeLocation, o.readEnvelope().Type)

	// b re-declares into trip-1. Per-connection delivery is ordered, so the
	// ack consumed inside join also proves the first update never reached b.
	b.join("trip-1")

	a.sendEnvelope(models.MsgTypeLocation, models.LocationPayload{Latitude: 2})
	require.Equal(t, models.MsgTypeAck, a.readEnvelope().Type)

	env := b.readEnvelope()
	require.Equal(t, models.MsgTypeLocation, env.Type)
	var loc models.LocationPayload
	require.NoError(t, json.Unmarshal(env.Payload, &loc))
	assert.InDelta(t, 2.0, loc.Latitude, 1e-9)
}

func TestSessionUpdateRelayedToSession(t *testing.T) {
	h, srv := newTestHub(t, nil)

	a := dial(t, srv)
	b := dial(t, srv)
	waitForClients(t, h, 2)
	a.join("trip-9")
	b.join("trip-9")

	a.sendEnvelope(models.MsgTypeSessionUpdate, models.SessionUpdatePayload{
		SessionID: "trip-9", Status: models.SessionStatusPaused,
	})
	require.Equal(t, models.MsgTypeAck, a.readEnvelope().Type)

	env := b.readEnvelope()
	require.Equal(t, models.MsgTypeSessionUpdate, env.Type)
	var p models.SessionUpdatePayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, models.SessionStatusPaused, p.Status)
}

func TestMalformedMessageGetsErrorAndConnectionSurvives(t *testing.T) {
	h, srv := newTestHub(t, nil)

	p := dial(t, srv)
	waitForClients(t, h, 1)

	require.NoError(t, p.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	env := p.readEnvelope()
	assert.Equal(t, models.MsgTypeError, env.Type)

	// Connection stays open and keeps working
	p.sendEnvelope(models.MsgTypePing, nil)
	env = p.readEnvelope()
	assert.Equal(t, models.MsgTypePong, env.Type)
	assert.Equal(t, 1, h.ClientCount())
}

func TestUnknownTypeGetsError(t *testing.T) {
	_, srv := newTestHub(t, nil)

	p := dial(t, srv)
	p.sendEnvelope("teleport", nil)
	env := p.readEnvelope()
	require.Equal(t, models.MsgTypeError, env.Type)
	var e models.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &e))
	assert.Contains(t, e.Message, "teleport")
}

func TestDisconnectRemovesClientIdempotently(t *testing.T) {
	h, srv := newTestHub(t, nil)

	a := dial(t, srv)
	b := dial(t, srv)
	waitForClients(t, h, 2)

	a.conn.Close()
	waitForClients(t, h, 1)

	// Broadcasts still reach the survivor
	h.BroadcastGlobal(models.Envelope{Type: models.MsgTypeSpeedBump}, nil)
	env := b.readEnvelope()
	assert.Equal(t, models.MsgTypeSpeedBump, env.Type)
}

func TestServerOriginatedBroadcastReachesAll(t *testing.T) {
	h, srv := newTestHub(t, nil)

	a := dial(t, srv)
	b := dial(t, srv)
	waitForClients(t, h, 2)

	payload, _ := json.Marshal(models.RecordSnapshot{ID: 3, Intensity: 7})
	h.BroadcastGlobal(models.Envelope{Type: models.MsgTypeSpeedBump, Payload: payload}, nil)

	for _, p := range []*testPeer{a, b} {
		env := p.readEnvelope()
		assert.Equal(t, models.MsgTypeSpeedBump, env.Type)
	}
}
