package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"LiveChat/server/internal/db/dbtest"
	"LiveChat/server/internal/photos"
	"LiveChat/server/internal/pubsub"
	"LiveChat/server/internal/services"
	"LiveChat/server/internal/subscriptions"
)

const testSecret = "test-secret"

type env struct {
	fake   *dbtest.DB
	broker *pubsub.Broker
	srv    *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fake := dbtest.New()
	broker := pubsub.NewBroker()
	filter := subscriptions.NewFilter(fake, services.NewChatService())

	// no unsplash key: the picture lookup fails and must degrade to null
	h := New(fake, broker, filter, photos.NewClient(""), testSecret, time.Hour)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return &env{fake: fake, broker: broker, srv: srv}
}

func tokenFor(t *testing.T, userID int) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": "someone",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do sends one JSON request and returns the status code and raw body.
func (e *env) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// dialWS opens a subscription socket and waits for the connected frame, so
// callers know the broker subscriptions are registered.
func (e *env) dialWS(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	if token != "" {
		wsURL += "?token=" + token
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	frame := readFrame(t, conn)
	require.Equal(t, "connected", frame.Event)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

// expectNoFrame asserts silence on the socket. The read deadline poisons the
// connection, so this must be the last read on it.
func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var frame wsFrame
	err := conn.ReadJSON(&frame)
	require.Error(t, err, "expected no frame, got %s", frame.Event)
}
