package wsbridge

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/oblivioncth/clifp/internal/director"
)

func testDirectorate() director.Directorate {
	return director.NewDirectorate(director.New(&bytes.Buffer{}), "test")
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + wsPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_BroadcastsAsyncMessage(t *testing.T) {
	d := testDirectorate()
	h := New(d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)
	time.Sleep(10 * time.Millisecond)

	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	time.Sleep(10 * time.Millisecond)

	d.PostMessage("hello bridge")

	var f Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&f))
	require.Equal(t, "hello bridge", f.Body["text"])
}

func TestHub_RoutesYesOrNoReply(t *testing.T) {
	d := testDirectorate()
	h := New(d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)
	time.Sleep(10 * time.Millisecond)

	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	time.Sleep(10 * time.Millisecond)

	answerCh := make(chan bool, 1)
	go func() {
		answerCh <- d.Director().RequestYesOrNo(context.Background(), d.Name(), "continue?")
	}()

	var req Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&req))
	require.Equal(t, "continue?", req.Body["question"])

	reply := Frame{ReplyTo: &req.ID, Body: map[string]any{"answer": true}}
	require.NoError(t, conn.WriteJSON(reply))

	select {
	case answer := <-answerCh:
		require.True(t, answer)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply to route back")
	}
}
