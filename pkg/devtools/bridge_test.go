package devtools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeList(t *testing.T) {
	defer Register(newFakeSource("bridge-list"))()

	rec := httptest.NewRecorder()
	NewBridge().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Stores []string `json:"stores"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Stores, "bridge-list")
}

func TestBridgeSnapshot(t *testing.T) {
	src := newFakeSource("bridge-snapshot")
	src.set("counter", 3)
	defer Register(src)()

	bridge := NewBridge()

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		bridge.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores/bridge-snapshot", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var ev Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
		assert.Equal(t, "bridge-snapshot", ev.Store)
		assert.Equal(t, float64(3), ev.Snapshot["counter"])
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		bridge.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBridgeEvents(t *testing.T) {
	src := newFakeSource("bridge-events")
	src.set("theme", "light")
	defer Register(src)()

	bridge := NewBridge()
	server := httptest.NewServer(bridge)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/stores/bridge-events/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Empty(t, first.ChangedKeys)
	assert.Equal(t, "light", first.Snapshot["theme"])

	// The observer is registered right after the first message is queued.
	require.Eventually(t, func() bool { return src.observerCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, bridge.ClientCount())

	src.set("theme", "dark")

	var next Event
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, []string{"theme"}, next.ChangedKeys)
	assert.Equal(t, "dark", next.Snapshot["theme"])

	conn.Close()
	assert.Eventually(t, func() bool {
		return src.observerCount() == 0 && bridge.ClientCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestBridgeEventsUnknownStore(t *testing.T) {
	server := httptest.NewServer(NewBridge())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/stores/missing/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
