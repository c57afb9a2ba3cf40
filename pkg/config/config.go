package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Config interface {
	HTTPAddr() string
	AdvertiseAddr() string
	PushAddr() string

	TriggerPin() string
	EchoPin() string
	EchoTimeout() time.Duration
	MockSensor() bool

	NVRAMPath() string

	TickInterval() time.Duration
	SamplingTicks() int

	TelemetryEnabled() bool
	TelemetryBroker() string
	TelemetryClientID() string
	TelemetryUsername() string
	TelemetryPassword() string
	TelemetryTopicPrefix() string
	TelemetryRetryInterval() time.Duration

	ConsolePort() string
	ConsoleBaudRate() int

	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
