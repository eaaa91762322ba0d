package homeassistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeHA speaks enough of the Home Assistant websocket protocol for the client.
type fakeHA struct {
	mu          sync.Mutex
	token       string
	connections int
	subscribed  []string
	conns       []*websocket.Conn
}

var registryResults = map[string]string{
	WS_TYPE_FLOOR_REGISTRY:  `[{"floor_id":"f1","name":"Main Street","level":0}]`,
	WS_TYPE_AREA_REGISTRY:   `[{"area_id":"a1","name":"Building A","floor_id":"f1"}]`,
	WS_TYPE_DEVICE_REGISTRY: `[{"id":"d1","name":"SDM120","name_by_user":"Meter John","manufacturer":"Eastron","model":"SDM120","area_id":"a1"}]`,
	WS_TYPE_ENTITY_REGISTRY: `[{"entity_id":"sensor.john_current","device_id":"d1","platform":"modbus"}]`,
}

func (f *fakeHA) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		defer conn.Close()

		f.mu.Lock()
		f.connections++
		f.conns = append(f.conns, conn)
		f.mu.Unlock()

		conn.WriteJSON(wsMessage{Type: WS_TYPE_AUTH_REQUIRED, HAVersion: "2024.3.0"})
		var auth wsMessage
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		if auth.AccessToken != f.token {
			conn.WriteJSON(wsMessage{Type: WS_TYPE_AUTH_INVALID, Message: "Invalid access token"})
			return
		}
		conn.WriteJSON(wsMessage{Type: WS_TYPE_AUTH_OK, HAVersion: "2024.3.0"})

		var writeMu sync.Mutex
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			ok := true
			res := wsMessage{Id: msg.Id, Type: WS_TYPE_RESULT, Success: &ok}
			switch msg.Type {
			case WS_TYPE_SUBSCRIBE:
				f.mu.Lock()
				f.subscribed = append(f.subscribed, msg.EventType)
				f.mu.Unlock()
				id := msg.Id
				go func() {
					time.Sleep(50 * time.Millisecond)
					writeMu.Lock()
					defer writeMu.Unlock()
					conn.WriteJSON(wsMessage{Id: id, Type: WS_TYPE_EVENT, Event: &wsEvent{
						EventType: "pdf_generator_complete",
						Data:      json.RawMessage(`{"success":true,"filename":"john_2024-03-10.pdf"}`),
					}})
				}()
			default:
				if result, found := registryResults[msg.Type]; found {
					res.Result = json.RawMessage(result)
				} else {
					failed := false
					res.Success = &failed
					res.Error = &wsError{Code: "unknown_command", Message: "Unknown command."}
				}
			}
			writeMu.Lock()
			conn.WriteJSON(res)
			writeMu.Unlock()
		}
	}
}

func (f *fakeHA) dropConnections() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		c.Close()
	}
	f.conns = nil
}

func TestWebsocketClient(t *testing.T) {

	assert := assert.New(t)

	ha := &fakeHA{token: "test-token"}
	server := httptest.NewServer(ha.handler(t))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.HomeAssistant.ReconnectMillis = 500
	client, err := NewWebsocketClient(cfg, zap.Must(zap.NewDevelopment()))
	require.NoError(t, err)

	_, err = client.GetRegistry(context.Background())
	assert.ErrorIs(err, ErrNotConnected)

	connected := make(chan struct{}, 4)
	completions := make(chan domain.CompletionEvent, 4)
	client.OnConnected = func() { connected <- struct{}{} }
	client.OnCompletion = func(ev domain.CompletionEvent) { completions <- ev }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("not connected")
	}

	registry, err := client.GetRegistry(ctx)
	require.NoError(t, err)
	assert.Equal("Meter John", registry.Devices["d1"].NameByUser)
	assert.Equal("f1", registry.Areas["a1"].FloorId)
	assert.Equal("d1", registry.Entities["sensor.john_current"].DeviceId)

	select {
	case ev := <-completions:
		assert.True(ev.Success)
		assert.Equal("john_2024-03-10.pdf", ev.Filename)
	case <-time.After(2 * time.Second):
		t.Fatal("no completion event")
	}

	// a dropped connection is re-established and signalled again
	ha.dropConnections()
	select {
	case <-connected:
	case <-time.After(3 * time.Second):
		t.Fatal("not reconnected")
	}

	ha.mu.Lock()
	assert.Equal(2, ha.connections)
	assert.Equal([]string{"pdf_generator_complete", "pdf_generator_complete"}, ha.subscribed)
	ha.mu.Unlock()
}

func TestWebsocketClientAuthInvalid(t *testing.T) {

	ha := &fakeHA{token: "other-token"}
	server := httptest.NewServer(ha.handler(t))
	defer server.Close()

	client, err := NewWebsocketClient(testConfig(server.URL), zap.Must(zap.NewDevelopment()))
	require.NoError(t, err)

	err = client.session(context.Background())
	assert.ErrorContains(t, err, "authentication rejected")
}
