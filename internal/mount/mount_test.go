package mount_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblivioncth/clifp/internal/mount"
)

func TestProxyMounter_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := mount.NewProxyMounter(srv.URL, time.Second)
	err := m.Mount(context.Background(), "game-data-1", "/tmp/pack")
	assert.True(t, err.Ok())
}

func TestProxyMounter_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := mount.NewProxyMounter(srv.URL, time.Second)
	err := m.Mount(context.Background(), "game-data-1", "/tmp/pack")
	assert.False(t, err.Ok())
}

func TestRouterMounter_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "game-data-1", r.URL.Query().Get("gameDataId"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := mount.NewRouterMounter(srv.URL, time.Second)
	err := m.Mount(context.Background(), "game-data-1", "/tmp/pack")
	assert.True(t, err.Ok())
}

// fakeQMPServer accepts one connection, sends a greeting, then replies
// {"return":{}} to every command it reads.
func fakeQMPServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		_, _ = conn.Write([]byte(`{"QMP": {"version": {}}}` + "\n"))

		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			var cmd map[string]any
			_ = json.Unmarshal([]byte(line), &cmd)

			reply, _ := json.Marshal(map[string]any{"return": map[string]any{}})
			if _, err := conn.Write(append(reply, '\n')); err != nil {
				return
			}
		}
	}()

	t.Cleanup(func() { _ = ln.Close() })
	return ln.Addr().String()
}

func TestQMPMounter_Success(t *testing.T) {
	addr := fakeQMPServer(t)
	m := mount.NewQMPMounter(addr, 2*time.Second)

	err := m.Mount(context.Background(), "game-data-1", "/tmp/pack.bin")
	assert.True(t, err.Ok())
}

func TestPolicy_StopsOnFirstSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	failing := mount.NewProxyMounter("http://127.0.0.1:1", 100*time.Millisecond)
	succeeding := mount.NewRouterMounter(srv.URL, time.Second)

	policy := mount.NewPolicy(failing, succeeding)
	err := policy.Mount(context.Background(), "game-data-1", "/tmp/pack")
	assert.True(t, err.Ok())
}

func TestPolicy_AllFail(t *testing.T) {
	failing1 := mount.NewProxyMounter("http://127.0.0.1:1", 100*time.Millisecond)
	failing2 := mount.NewRouterMounter("http://127.0.0.1:1", 100*time.Millisecond)

	policy := mount.NewPolicy(failing1, failing2)
	err := policy.Mount(context.Background(), "game-data-1", "/tmp/pack")
	assert.False(t, err.Ok())
}

func TestPolicy_Empty(t *testing.T) {
	policy := mount.NewPolicy()
	err := policy.Mount(context.Background(), "game-data-1", "/tmp/pack")
	assert.False(t, err.Ok())
}
