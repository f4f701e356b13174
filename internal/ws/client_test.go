package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/flags-quiz-client/internal/protocol"
)

// quizServer accepts one connection, hands the first client frame to
// received, pushes frames and then closes normally.
func quizServer(t *testing.T, received chan<- []byte, push [][]byte, hold <-chan struct{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		received <- data

		for _, frame := range push {
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				return
			}
		}
		if hold != nil {
			for {
				_, data, err := conn.Read(ctx)
				if err != nil {
					return
				}
				received <- data
			}
		}
	}))
}

func TestEndpoint(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://flags.example.com/", "wss://flags.example.com/ws"},
		{"ws://127.0.0.1:9000", "ws://127.0.0.1:9000/ws"},
	}
	for _, tc := range cases {
		got, err := Endpoint(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := Endpoint("ftp://nope")
	assert.Error(t, err)
}

func TestClient_JoinFirstThenFramesInOrder(t *testing.T) {
	received := make(chan []byte, 4)
	push := [][]byte{
		[]byte(`{"event":"playerJoined","data":{"id":"1","username":"alice"}}`),
		[]byte(`{"event":"countdown","data":3}`),
		[]byte(`{"event":"countdown","data":2}`),
	}
	srv := quizServer(t, received, push, nil)
	defer srv.Close()

	endpoint, err := Endpoint(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, endpoint, protocol.JoinRoom{Username: "alice", RoomID: "4821"}, Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	var frames [][]byte
	closed := make(chan error, 1)
	c.OnMessage(func(frame []byte) { frames = append(frames, frame) })
	c.OnClose(func(err error) { closed <- err })

	go func() { _ = c.Run(ctx) }()

	select {
	case first := <-received:
		var join map[string]string
		require.NoError(t, json.Unmarshal(first, &join))
		assert.Equal(t, map[string]string{"event": "joinRoom", "username": "alice", "roomID": "4821"}, join)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the join frame")
	}

	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("close callback never fired")
	}
	assert.Equal(t, push, frames)
}

func TestClient_SendAfterCloseIsDropped(t *testing.T) {
	received := make(chan []byte, 4)
	hold := make(chan struct{})
	srv := quizServer(t, received, nil, hold)
	defer srv.Close()
	defer close(hold)

	endpoint, err := Endpoint(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, endpoint, protocol.JoinRoom{Username: "bob", RoomID: "4821"}, Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()
	<-received

	c.Send(protocol.LoadGame{})
	select {
	case frame := <-received:
		assert.JSONEq(t, `{"event":"loadgame"}`, string(frame))
	case <-time.After(2 * time.Second):
		t.Fatal("loadgame never arrived")
	}

	require.NoError(t, c.Close())
	<-done

	assert.NotPanics(t, func() { c.Send(protocol.CleanRoom{}) })
	assert.ErrorIs(t, c.trySend(protocol.CleanRoom{}), ErrNotOpen)
	assert.NoError(t, c.Close(), "second close is a no-op")
}
