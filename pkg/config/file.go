package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/charlie0129/wle/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		HTTP: HTTPConfig{
			Addr:          ptr.To(":80"),
			AdvertiseAddr: ptr.To(""),
		},
		Push: PushConfig{
			Addr: ptr.To(":81"),
		},
		Sensor: SensorConfig{
			TriggerPin:  ptr.To("12"),
			EchoPin:     ptr.To("14"),
			EchoTimeout: ptr.To(time.Second),
			Mock:        ptr.To(false),
		},
		NVRAM: NVRAMConfig{
			Path: ptr.To("/var/lib/wle/eeprom.bin"),
		},
		Loop: LoopConfig{
			TickInterval:  ptr.To(10 * time.Millisecond),
			SamplingTicks: ptr.To(100),
		},
		// Telemetry stays disabled until a broker is configured.
		Telemetry: TelemetryConfig{
			Broker:        ptr.To(""),
			ClientID:      ptr.To("water-level-emitter"),
			Username:      ptr.To("public"),
			Password:      ptr.To("public"),
			TopicPrefix:   ptr.To("water-level-emitter"),
			RetryInterval: ptr.To(time.Second),
		},
		Console: ConsoleConfig{
			Port:     ptr.To(""),
			BaudRate: ptr.To(115200),
		},
	}
)

var _ Config = &File{}

type HTTPConfig struct {
	Addr *string `yaml:"addr,omitempty"`
	// AdvertiseAddr is the address embedded in the status page for the
	// live-update script. Empty means the host the page was loaded from.
	AdvertiseAddr *string `yaml:"advertiseAddr,omitempty"`
}

type PushConfig struct {
	Addr *string `yaml:"addr,omitempty"`
}

type SensorConfig struct {
	TriggerPin  *string        `yaml:"triggerPin,omitempty"`
	EchoPin     *string        `yaml:"echoPin,omitempty"`
	EchoTimeout *time.Duration `yaml:"echoTimeout,omitempty"`
	Mock        *bool          `yaml:"mock,omitempty"`
}

type NVRAMConfig struct {
	Path *string `yaml:"path,omitempty"`
}

type LoopConfig struct {
	TickInterval  *time.Duration `yaml:"tickInterval,omitempty"`
	SamplingTicks *int           `yaml:"samplingTicks,omitempty"`
}

type TelemetryConfig struct {
	Broker        *string        `yaml:"broker,omitempty"`
	ClientID      *string        `yaml:"clientID,omitempty"`
	Username      *string        `yaml:"username,omitempty"`
	Password      *string        `yaml:"password,omitempty"`
	TopicPrefix   *string        `yaml:"topicPrefix,omitempty"`
	RetryInterval *time.Duration `yaml:"retryInterval,omitempty"`
}

type ConsoleConfig struct {
	Port     *string `yaml:"port,omitempty"`
	BaudRate *int    `yaml:"baudRate,omitempty"`
}

type RawFileConfig struct {
	HTTP      HTTPConfig      `yaml:"http,omitempty"`
	Push      PushConfig      `yaml:"push,omitempty"`
	Sensor    SensorConfig    `yaml:"sensor,omitempty"`
	NVRAM     NVRAMConfig     `yaml:"nvram,omitempty"`
	Loop      LoopConfig      `yaml:"loop,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
	Console   ConsoleConfig   `yaml:"console,omitempty"`
}

// DefaultRawFileConfig returns a copy of the built-in defaults.
func DefaultRawFileConfig() *RawFileConfig {
	c, _ := NewRawFileConfigFromConfig(NewFileFromConfig(&RawFileConfig{}, ""))
	return c
}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

// NewRawFileConfigFromConfig returns the effective configuration with every
// field populated.
func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		HTTP: HTTPConfig{
			Addr:          ptr.To(c.HTTPAddr()),
			AdvertiseAddr: ptr.To(c.AdvertiseAddr()),
		},
		Push: PushConfig{
			Addr: ptr.To(c.PushAddr()),
		},
		Sensor: SensorConfig{
			TriggerPin:  ptr.To(c.TriggerPin()),
			EchoPin:     ptr.To(c.EchoPin()),
			EchoTimeout: ptr.To(c.EchoTimeout()),
			Mock:        ptr.To(c.MockSensor()),
		},
		NVRAM: NVRAMConfig{
			Path: ptr.To(c.NVRAMPath()),
		},
		Loop: LoopConfig{
			TickInterval:  ptr.To(c.TickInterval()),
			SamplingTicks: ptr.To(c.SamplingTicks()),
		},
		Telemetry: TelemetryConfig{
			Broker:        ptr.To(c.TelemetryBroker()),
			ClientID:      ptr.To(c.TelemetryClientID()),
			Username:      ptr.To(c.TelemetryUsername()),
			Password:      ptr.To(c.TelemetryPassword()),
			TopicPrefix:   ptr.To(c.TelemetryTopicPrefix()),
			RetryInterval: ptr.To(c.TelemetryRetryInterval()),
		},
		Console: ConsoleConfig{
			Port:     ptr.To(c.ConsolePort()),
			BaudRate: ptr.To(c.ConsoleBaudRate()),
		},
	}

	return rawConfig, nil
}

// get reads one field, falling back to the default when unset.
func get[T any](f *File, field func(*RawFileConfig) *T) T {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if v := field(f.c); v != nil {
		return *v
	}
	return *field(defaultFileConfig)
}

func (f *File) HTTPAddr() string {
	return get(f, func(c *RawFileConfig) *string { return c.HTTP.Addr })
}

func (f *File) AdvertiseAddr() string {
	return get(f, func(c *RawFileConfig) *string { return c.HTTP.AdvertiseAddr })
}

func (f *File) PushAddr() string {
	return get(f, func(c *RawFileConfig) *string { return c.Push.Addr })
}

func (f *File) TriggerPin() string {
	return get(f, func(c *RawFileConfig) *string { return c.Sensor.TriggerPin })
}

func (f *File) EchoPin() string {
	return get(f, func(c *RawFileConfig) *string { return c.Sensor.EchoPin })
}

func (f *File) EchoTimeout() time.Duration {
	return get(f, func(c *RawFileConfig) *time.Duration { return c.Sensor.EchoTimeout })
}

func (f *File) MockSensor() bool {
	return get(f, func(c *RawFileConfig) *bool { return c.Sensor.Mock })
}

func (f *File) NVRAMPath() string {
	return get(f, func(c *RawFileConfig) *string { return c.NVRAM.Path })
}

func (f *File) TickInterval() time.Duration {
	d := get(f, func(c *RawFileConfig) *time.Duration { return c.Loop.TickInterval })
	if d <= 0 {
		return *defaultFileConfig.Loop.TickInterval
	}
	return d
}

func (f *File) SamplingTicks() int {
	n := get(f, func(c *RawFileConfig) *int { return c.Loop.SamplingTicks })
	if n <= 0 {
		return *defaultFileConfig.Loop.SamplingTicks
	}
	return n
}

func (f *File) TelemetryEnabled() bool {
	return strings.TrimSpace(f.TelemetryBroker()) != ""
}

func (f *File) TelemetryBroker() string {
	return get(f, func(c *RawFileConfig) *string { return c.Telemetry.Broker })
}

func (f *File) TelemetryClientID() string {
	return get(f, func(c *RawFileConfig) *string { return c.Telemetry.ClientID })
}

func (f *File) TelemetryUsername() string {
	return get(f, func(c *RawFileConfig) *string { return c.Telemetry.Username })
}

func (f *File) TelemetryPassword() string {
	return get(f, func(c *RawFileConfig) *string { return c.Telemetry.Password })
}

func (f *File) TelemetryTopicPrefix() string {
	return get(f, func(c *RawFileConfig) *string { return c.Telemetry.TopicPrefix })
}

func (f *File) TelemetryRetryInterval() time.Duration {
	d := get(f, func(c *RawFileConfig) *time.Duration { return c.Telemetry.RetryInterval })
	if d <= 0 {
		return *defaultFileConfig.Telemetry.RetryInterval
	}
	return d
}

func (f *File) ConsolePort() string {
	return get(f, func(c *RawFileConfig) *string { return c.Console.Port })
}

func (f *File) ConsoleBaudRate() int {
	return get(f, func(c *RawFileConfig) *int { return c.Console.BaudRate })
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = yaml.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	b, err := yaml.Marshal(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config for file %s", f.filepath)
	}

	if dir := filepath.Dir(f.filepath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return pkgerrors.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	// The file may hold broker credentials.
	if err := os.WriteFile(f.filepath, b, 0600); err != nil {
		return pkgerrors.Wrapf(err, "failed to write file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"httpAddr":         f.HTTPAddr(),
		"pushAddr":         f.PushAddr(),
		"triggerPin":       f.TriggerPin(),
		"echoPin":          f.EchoPin(),
		"echoTimeout":      f.EchoTimeout().String(),
		"mockSensor":       f.MockSensor(),
		"nvramPath":        f.NVRAMPath(),
		"tickInterval":     f.TickInterval().String(),
		"samplingTicks":    f.SamplingTicks(),
		"telemetryEnabled": f.TelemetryEnabled(),
		"telemetryBroker":  f.TelemetryBroker(),
		"consolePort":      f.ConsolePort(),
	}
}
