package chatclient

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HMasataka/relay/internal/logging"
	"github.com/HMasataka/relay/pkg/domain"
	"github.com/HMasataka/relay/pkg/relay"
	"github.com/HMasataka/relay/pkg/transport/protocol"
	"github.com/HMasataka/relay/pkg/transport/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T, maxMedia int64) (string, *relay.Hub) {
	t.Helper()

	hub := relay.NewHub(relay.HubOptions{Codec: protocol.NewJSONCodec(maxMedia)})
	srv := httptest.NewServer(websocket.NewServer(
		websocket.WithLifecycle(hub),
		websocket.WithLogger(logging.Discard()),
	))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub
}

func connect(t *testing.T, url string) *Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, url, DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func next(t *testing.T, c *Client) domain.Event {
	t.Helper()

	select {
	case event, ok := <-c.Events():
		require.True(t, ok, "events channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestClient_Conversation(t *testing.T) {
	url, hub := startRelay(t, 0)

	alice := connect(t, url)
	bob := connect(t, url)
	require.Eventually(t, func() bool { return hub.Stats().OpenConnections == 2 }, 2*time.Second, 5*time.Millisecond)

	aliceName := "alice-" + uuid.NewString()[:8]
	require.NoError(t, alice.Join(aliceName))
	assert.Equal(t, domain.RosterUpdate{Usernames: []string{aliceName}}, next(t, alice))
	assert.Equal(t, domain.RosterUpdate{Usernames: []string{aliceName}}, next(t, bob))

	require.NoError(t, bob.Join("bob"))
	assert.Equal(t, domain.RosterUpdate{Usernames: []string{aliceName, "bob"}}, next(t, alice))
	assert.Equal(t, domain.RosterUpdate{Usernames: []string{aliceName, "bob"}}, next(t, bob))

	require.NoError(t, alice.SendText("hi"))
	want := domain.ChatMessage{Username: aliceName, Text: "hi"}
	assert.Equal(t, want, next(t, alice))
	assert.Equal(t, want, next(t, bob))

	require.NoError(t, alice.Close())
	assert.Equal(t, domain.RosterUpdate{Usernames: []string{"bob"}}, next(t, bob))

	_, ok := <-alice.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, alice.SendText("late"), domain.ErrConnectionClosed)
}

func TestClient_SendFileSniffsContentType(t *testing.T) {
	url, _ := startRelay(t, 0)
	c := connect(t, url)
	require.NoError(t, c.Join("alice"))
	next(t, c)

	path := filepath.Join(t.TempDir(), "note")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%âãÏÓ\n"), 0o600))

	require.NoError(t, c.SendFile(path))

	media, ok := next(t, c).(domain.MediaMessage)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", media.ContentType)
	assert.Equal(t, "alice", media.Username)
}

func TestClient_OversizeMediaNotice(t *testing.T) {
	url, _ := startRelay(t, 4)
	c := connect(t, url)

	require.NoError(t, c.SendMedia([]byte("12345"), "text/plain"))
	assert.Equal(t, domain.ErrorNotice{Message: relay.OversizeNotice}, next(t, c))
}

func TestDial_Error(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/ws", DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DIAL_ERROR")
}
