// Package telemetry keeps a best-effort session to an MQTT broker and
// publishes the device status and level to it.
package telemetry

import (
	"context"
	"strconv"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultRetryInterval = time.Second
	DefaultTopicPrefix   = "water-level-emitter"

	StatusOnline  = "online"
	StatusOffline = "offline"
)

// State is the connection state of a Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Session is a single broker session. Connect makes one attempt.
type Session interface {
	Connect() error
	IsConnected() bool
	Publish(topic, payload string) error
	Disconnect()
}

// Topics are the topics the manager publishes to.
type Topics struct {
	Status string
	Level  string
}

// NewTopics derives the status and level topics from prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Status: prefix + "/status",
		Level:  prefix + "/level",
	}
}

// StateFunc observes state transitions.
type StateFunc func(from, to State)

// Manager owns a Session and reconnects it on demand. It is meant to be
// driven from a single goroutine; State may be read from any goroutine.
type Manager struct {
	session Session
	topics  Topics

	RetryInterval time.Duration
	OnStateChange StateFunc

	mu    sync.RWMutex
	state State
}

// NewManager returns a disconnected manager.
func NewManager(session Session, topics Topics) *Manager {
	return &Manager{
		session:       session,
		topics:        topics,
		RetryInterval: DefaultRetryInterval,
		state:         Disconnected,
	}
}

// Topics returns the topics the manager publishes to.
func (m *Manager) Topics() Topics {
	return m.topics
}

// State returns the last observed state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(to State) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()

	if from == to {
		return
	}
	logrus.WithFields(logrus.Fields{
		"from": from.String(),
		"to":   to.String(),
	}).Debug("telemetry state changed")
	if m.OnStateChange != nil {
		m.OnStateChange(from, to)
	}
}

// Connected polls the session. A session that dropped since the last poll
// moves the manager to Disconnected.
func (m *Manager) Connected() bool {
	if m.session.IsConnected() {
		return true
	}
	if m.State() == Connected {
		logrus.Warn("telemetry broker connection lost")
		m.setState(Disconnected)
	}
	return false
}

// Connect blocks until the broker accepts a session, retrying every
// RetryInterval. It gives up only when ctx is done. On success it
// publishes the online status and, if hasLevel, the current level.
func (m *Manager) Connect(ctx context.Context, level int, hasLevel bool) error {
	m.setState(Connecting)

	attempts := 0
	for {
		attempts++
		err := m.session.Connect()
		if err == nil {
			break
		}
		logrus.WithField("attempt", attempts).Debugf("telemetry connect failed: %v", err)

		t := time.NewTimer(m.RetryInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			m.setState(Disconnected)
			return ctx.Err()
		case <-t.C:
		}
	}

	m.setState(Connected)
	logrus.WithField("attempts", attempts).Info("connection to telemetry broker established")

	if err := m.session.Publish(m.topics.Status, StatusOnline); err != nil {
		logrus.Errorf("failed to publish telemetry status: %v", err)
	}
	if hasLevel {
		if err := m.PublishLevel(level); err != nil {
			logrus.Errorf("failed to publish telemetry level: %v", err)
		}
	}

	return nil
}

// PublishLevel publishes level to the level topic. It does not retry.
func (m *Manager) PublishLevel(level int) error {
	if err := m.session.Publish(m.topics.Level, strconv.Itoa(level)); err != nil {
		return pkgerrors.Wrapf(err, "failed to publish to %s", m.topics.Level)
	}
	return nil
}

// Close ends the session cleanly, which suppresses the last will.
func (m *Manager) Close() {
	m.session.Disconnect()
	m.setState(Disconnected)
}
