package telemetry

import (
	"net"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	pkgerrors "github.com/pkg/errors"
)

const (
	DefaultClientID = "water-level-emitter"
	DefaultUsername = "public"
	DefaultPassword = "public"

	defaultPort       = "1883"
	connectTimeout    = 5 * time.Second
	publishTimeout    = 2 * time.Second
	disconnectQuiesce = 250
)

// PahoOptions configure a broker session.
type PahoOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topics   Topics
}

// PahoSession is a Session backed by the Eclipse Paho client.
type PahoSession struct {
	client mqtt.Client
}

var _ Session = &PahoSession{}

// BrokerURL normalizes a broker address, adding the tcp scheme and the
// default MQTT port when missing.
func BrokerURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultPort)
	}
	return "tcp://" + addr
}

// NewPahoSession builds a session. The last will announcing the offline
// status is registered here because MQTT carries it in the connect packet.
// Paho's own reconnect logic is disabled; Manager reconnects.
func NewPahoSession(o PahoOptions) *PahoSession {
	if o.ClientID == "" {
		o.ClientID = DefaultClientID
	}

	opts := mqtt.NewClientOptions().
		AddBroker(BrokerURL(o.Broker)).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetWill(o.Topics.Status, StatusOffline, 0, false).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(connectTimeout).
		SetCleanSession(true)

	return &PahoSession{client: mqtt.NewClient(opts)}
}

// Connect implements Session.
func (s *PahoSession) Connect() error {
	token := s.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return pkgerrors.Wrap(err, "mqtt connect failed")
	}
	return nil
}

// IsConnected implements Session.
func (s *PahoSession) IsConnected() bool {
	return s.client.IsConnected()
}

// Publish implements Session. It waits at most publishTimeout for the
// client to hand the message off.
func (s *PahoSession) Publish(topic, payload string) error {
	token := s.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return pkgerrors.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Disconnect implements Session.
func (s *PahoSession) Disconnect() {
	if s.client.IsConnectionOpen() {
		s.client.Disconnect(disconnectQuiesce)
	}
}
