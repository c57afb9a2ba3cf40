package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	topic   string
	payload string
}

// fakeSession refuses the first failures connection attempts.
type fakeSession struct {
	mu        sync.Mutex
	failures  int
	attempts  int
	connected bool
	published []message
}

func (f *fakeSession) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return errors.New("connection refused")
	}
	f.connected = true
	return nil
}

func (f *fakeSession) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSession) Publish(topic, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return errors.New("not connected")
	}
	f.published = append(f.published, message{topic, payload})
	return nil
}

func (f *fakeSession) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeSession) drop() {
	f.Disconnect()
}

func (f *fakeSession) messages() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message(nil), f.published...)
}

func newTestManager(s Session) (*Manager, *[][2]State) {
	m := NewManager(s, NewTopics(""))
	m.RetryInterval = time.Millisecond
	var transitions [][2]State
	m.OnStateChange = func(from, to State) {
		transitions = append(transitions, [2]State{from, to})
	}
	return m, &transitions
}

func TestNewTopics(t *testing.T) {
	assert.Equal(t, Topics{Status: "water-level-emitter/status", Level: "water-level-emitter/level"}, NewTopics(""))
	assert.Equal(t, Topics{Status: "tank/status", Level: "tank/level"}, NewTopics("tank"))
}

func TestManager_ConnectRetriesUntilAccepted(t *testing.T) {
	s := &fakeSession{failures: 3}
	m, _ := newTestManager(s)

	require.NoError(t, m.Connect(context.Background(), 0, false))

	assert.Equal(t, 4, s.attempts)
	assert.Equal(t, Connected, m.State())
	assert.True(t, m.Connected())
	assert.Equal(t, []message{{"water-level-emitter/status", "online"}}, s.messages())
}

func TestManager_ConnectPublishesCurrentLevel(t *testing.T) {
	s := &fakeSession{}
	m, _ := newTestManager(s)

	require.NoError(t, m.Connect(context.Background(), 64, true))

	assert.Equal(t, []message{
		{"water-level-emitter/status", "online"},
		{"water-level-emitter/level", "64"},
	}, s.messages())
}

func TestManager_ConnectStopsOnCancel(t *testing.T) {
	s := &fakeSession{failures: 1 << 30}
	m, _ := newTestManager(s)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.Connect(ctx, 0, false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Disconnected, m.State())
	assert.Greater(t, s.attempts, 1)
}

func TestManager_Reconnect(t *testing.T) {
	s := &fakeSession{}
	m, transitions := newTestManager(s)

	require.NoError(t, m.Connect(context.Background(), 10, true))
	*transitions = nil

	s.drop()
	s.failures = 2
	require.False(t, m.Connected())
	assert.Equal(t, Disconnected, m.State())

	require.NoError(t, m.Connect(context.Background(), 55, true))

	assert.Equal(t, [][2]State{
		{Connected, Disconnected},
		{Disconnected, Connecting},
		{Connecting, Connected},
	}, *transitions)

	assert.Equal(t, []message{
		{"water-level-emitter/status", "online"},
		{"water-level-emitter/level", "10"},
		{"water-level-emitter/status", "online"},
		{"water-level-emitter/level", "55"},
	}, s.messages())
}

func TestManager_ConnectedDoesNotReportLossTwice(t *testing.T) {
	s := &fakeSession{}
	m, transitions := newTestManager(s)

	require.NoError(t, m.Connect(context.Background(), 0, false))
	s.drop()
	*transitions = nil

	assert.False(t, m.Connected())
	assert.False(t, m.Connected())
	assert.Equal(t, [][2]State{{Connected, Disconnected}}, *transitions)
}

func TestManager_PublishLevel(t *testing.T) {
	s := &fakeSession{}
	m, _ := newTestManager(s)

	assert.Error(t, m.PublishLevel(5))

	require.NoError(t, m.Connect(context.Background(), 0, false))
	require.NoError(t, m.PublishLevel(5))
	assert.Contains(t, s.messages(), message{"water-level-emitter/level", "5"})

	m.Close()
	assert.Equal(t, Disconnected, m.State())
	assert.False(t, s.IsConnected())
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "broker.local", want: "tcp://broker.local:1883"},
		{in: "10.0.0.2:1884", want: "tcp://10.0.0.2:1884"},
		{in: "ssl://broker:8883", want: "ssl://broker:8883"},
		{in: "ws://broker:80/mqtt", want: "ws://broker:80/mqtt"},
	}
	for _, tt := range tests {
		if got := BrokerURL(tt.in); got != tt.want {
			t.Errorf("BrokerURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "unknown", State(9).String())
}
