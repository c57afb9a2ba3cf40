package daemon

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/wle/pkg/config"
	"github.com/charlie0129/wle/pkg/console"
	"github.com/charlie0129/wle/pkg/nvram"
	"github.com/charlie0129/wle/pkg/sensor"
	"github.com/charlie0129/wle/pkg/utils/ptr"
)

// seesaw alternates between two distances.
type seesaw struct {
	mu sync.Mutex
	n  int
}

func (s *seesaw) Sample() (sensor.RawSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	if s.n%2 == 0 {
		return sensor.FromDistanceCm(20), nil
	}
	return sensor.FromDistanceCm(69), nil
}

// loopback records console writes and never yields input.
type loopback struct {
	mu     sync.Mutex
	writes strings.Builder
	closed chan struct{}
}

func (l *loopback) Read([]byte) (int, error) {
	<-l.closed
	return 0, net.ErrClosed
}

func (l *loopback) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes.Write(p)
}

func (l *loopback) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes.String()
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{Config: config.NewFileFromConfig(nil, "")})
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	raw := &config.RawFileConfig{
		Loop: config.LoopConfig{
			TickInterval:  ptr.To(time.Millisecond),
			SamplingTicks: ptr.To(1),
		},
	}
	con := &loopback{closed: make(chan struct{})}
	d, err := New(Options{
		Config:  config.NewFileFromConfig(raw, ""),
		Sampler: &seesaw{},
		Memory:  nvram.NewMock(nil),
		Console: console.New(con),
	})
	require.NoError(t, err)

	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	pushLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.serve(ctx, httpLn, pushLn) }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+pushLn.Addr().String()+"/", nil)
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Regexp(t, `^Event:NewLevel:(0|100)$`, string(msg))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	assert.Eventually(t, func() bool {
		return con.String() == "hello\r\n"
	}, 5*time.Second, 10*time.Millisecond)

	_ = conn.Close()
	cancel()
	close(con.closed)

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestPortOf(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":81", "81"},
		{"0.0.0.0:8081", "8081"},
		{"[::]:9000", "9000"},
		{"garbage", "81"},
		{"", "81"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, portOf(tt.addr, defaultPushPort), tt.addr)
	}
}
