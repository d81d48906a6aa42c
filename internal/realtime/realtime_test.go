package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failing struct{ calls int }

func (f *failing) Publish(context.Context, Event) error {
	f.calls++
	return errors.New("boom")
}

func TestMultiPublishesToAll(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	bad := &failing{}

	err := Multi(a, nil, bad, b).Publish(context.Background(), NewEvent(EventNewOrder, 1))
	assert.Error(t, err)
	assert.Equal(t, 1, bad.calls)
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestNotifySwallowsErrors(t *testing.T) {
	assert.NotPanics(t, func() {
		Notify(context.Background(), &failing{}, EventTableCleared, nil)
		Notify(context.Background(), nil, EventTableCleared, nil)
		Notify(context.Background(), Nop, EventTableCleared, nil)
	})
}

func TestRecorderNamed(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	Notify(ctx, r, EventNewOrder, 1)
	Notify(ctx, r, EventOrderStatusUpdated, 2)
	Notify(ctx, r, EventNewOrder, 3)

	assert.Len(t, r.Named(EventNewOrder), 2)
	assert.Len(t, r.Named(EventSettingsUpdated), 0)

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestEventEnvelope(t *testing.T) {
	raw, err := json.Marshal(NewEvent(EventOrderStatusUpdated, map[string]interface{}{"orderId": 7, "status": "ready"}))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "orderStatusUpdated", decoded["event"])
	assert.Contains(t, decoded, "timestamp")
	assert.Equal(t, "ready", decoded["data"].(map[string]interface{})["status"])
}

func TestRedisPublisherChannels(t *testing.T) {
	p := NewRedisPublisher(nil, "")
	assert.Equal(t, "restaurant:events:newOrder", p.Channel(EventNewOrder))
	assert.Equal(t, "restaurant:events:all", p.Channel("all"))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestHubBroadcastsToEveryClient(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	kitchen := dial(t, srv)
	defer kitchen.Close()
	admin := dial(t, srv)
	defer admin.Close()

	// the joined ack proves each connection is registered
	for _, conn := range []*websocket.Conn{kitchen, admin} {
		require.NoError(t, conn.WriteJSON(map[string]string{"event": EventJoinKitchen}))
		assert.Equal(t, EventJoined, readEvent(t, conn).Name)
	}
	assert.Equal(t, 2, hub.Clients())

	require.NoError(t, hub.Publish(context.Background(), NewEvent(EventTableCleared, map[string]int{"tableId": 5})))

	for _, conn := range []*websocket.Conn{kitchen, admin} {
		e := readEvent(t, conn)
		assert.Equal(t, EventTableCleared, e.Name)
		assert.EqualValues(t, 5, e.Data.(map[string]interface{})["tableId"])
	}
}

func TestHubIgnoresGarbage(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]string{"event": EventJoinKitchen}))
	assert.Equal(t, EventJoined, readEvent(t, conn).Name)
}

func TestHubClosed(t *testing.T) {
	hub := NewHub(nil)
	hub.Close()
	hub.Close()
	assert.ErrorIs(t, hub.Publish(context.Background(), NewEvent(EventNewOrder, nil)), ErrHubClosed)
}
