package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/HMasataka/relay/pkg/domain"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	id       string
	state    domain.State
	received [][]byte
	closed   bool
	mu       sync.Mutex
	sendErr  error
	onClose  func()
}

func newMockConn(id string) *mockConn {
	return &mockConn{id: id, state: domain.StateOpen}
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) State() domain.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockConn) setState(state domain.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

func (m *mockConn) Send(_ context.Context, frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, frame)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	m.closed = true
	m.state = domain.StateClosed
	onClose := m.onClose
	m.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockConn) getReceived() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.received...)
}

func (m *mockConn) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = nil
}

// frames decodes every received frame into a generic map
func (m *mockConn) frames(t *testing.T) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, raw := range m.getReceived() {
		var frame map[string]any
		require.NoError(t, json.Unmarshal(raw, &frame))
		out = append(out, frame)
	}
	return out
}

func roster(names ...string) map[string]any {
	users := make([]any, 0, len(names))
	for _, name := range names {
		users = append(users, name)
	}
	return map[string]any{"type": "users", "users": users}
}
