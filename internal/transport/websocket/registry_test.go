package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTestConn spins up a throwaway upgrade endpoint and returns the
// server side of a live connection.
func dialTestConn(t *testing.T) *websocket.Conn {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-serverConns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(time.Second):
		t.Fatal("server side connection never arrived")
		return nil
	}
}

func TestRegistryAddRemoveCount(t *testing.T) {
	registry := NewRegistry()
	a := dialTestConn(t)
	b := dialTestConn(t)

	registry.Add(7, a)
	registry.Add(7, b)
	assert.Equal(t, 2, registry.Count(7))
	assert.Equal(t, 0, registry.Count(8))

	registry.Remove(7, a)
	assert.Equal(t, 1, registry.Count(7))
	registry.Remove(7, b)
	assert.Equal(t, 0, registry.Count(7))

	// Removing an unknown connection is a no-op.
	registry.Remove(7, a)
	assert.Equal(t, 0, registry.Count(7))
}

func TestRegistryDisconnectIdentity(t *testing.T) {
	registry := NewRegistry()
	conn := dialTestConn(t)
	registry.Add(7, conn)

	registry.DisconnectIdentity(7, "signed out")
	assert.Equal(t, 0, registry.Count(7))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, readErr := conn.ReadMessage()
	assert.Error(t, readErr)
}
