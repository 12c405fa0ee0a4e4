package service

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

func TestBroadcaster_NoSessions(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	assert.Equal(t, 0, b.Sessions())
	// 没有连接时推送不报错
	b.PaletteChanged("p1", "transaction.created", 1)
}

func TestBroadcaster_OnlySamePalette(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = b.Serve(w, r, r.URL.Query().Get("palette"), 1)
	}))
	defer srv.Close()

	dial := func(palette string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?palette=" + palette
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	home := dial("p1")
	other := dial("p2")
	require.Eventually(t, func() bool { return b.Sessions() == 2 }, 2*time.Second, 10*time.Millisecond)

	b.PaletteChanged("p1", "transaction.created", 7)

	require.NoError(t, home.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := home.ReadMessage()
	require.NoError(t, err)
	var msg ChangeMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, ChangeMessage{Type: "transaction.created", PaletteID: "p1", UserID: 7}, msg)

	// 其他账本的连接收不到
	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = other.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}
