package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/wle/pkg/config"
	"github.com/charlie0129/wle/pkg/console"
	"github.com/charlie0129/wle/pkg/events"
	"github.com/charlie0129/wle/pkg/metrics"
	"github.com/charlie0129/wle/pkg/nvram"
	"github.com/charlie0129/wle/pkg/push"
	"github.com/charlie0129/wle/pkg/sensor"
	"github.com/charlie0129/wle/pkg/status"
	"github.com/charlie0129/wle/pkg/telemetry"
)

const (
	defaultPushPort = "81"
	shutdownTimeout = 5 * time.Second
)

// Options are the collaborators of a Daemon. Session and Console are
// optional; a nil Session disables telemetry.
type Options struct {
	Config  config.Config
	Sampler sensor.Sampler
	Memory  nvram.Memory
	Session telemetry.Session
	Console *console.Console
}

// Daemon wires the level loop to its outputs and serves HTTP and push
// clients.
type Daemon struct {
	conf      config.Config
	log       logrus.FieldLogger
	hub       *events.Hub
	page      *status.Page
	metrics   *metrics.Metrics
	telemetry *telemetry.Manager
	loop      *Loop
	push      *push.Server
	console   *console.Console
	router    http.Handler
}

// New loads the calibration from memory and builds a daemon ready to Serve.
func New(o Options) (*Daemon, error) {
	if o.Config == nil || o.Sampler == nil || o.Memory == nil {
		return nil, pkgerrors.New("config, sampler and memory are required")
	}

	store := nvram.NewStore(o.Memory)
	bounds, err := store.LoadBounds()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load calibration")
	}

	d := &Daemon{
		conf:    o.Config,
		log:     logrus.StandardLogger(),
		hub:     events.NewHub(),
		console: o.Console,
	}
	d.metrics = metrics.New(d.hub.Len)

	d.page, err = status.NewPage(o.Config.AdvertiseAddr(), portOf(o.Config.PushAddr(), defaultPushPort))
	if err != nil {
		return nil, err
	}

	var tel Telemetry
	if o.Session != nil {
		d.telemetry = telemetry.NewManager(o.Session, telemetry.NewTopics(o.Config.TelemetryTopicPrefix()))
		d.telemetry.RetryInterval = o.Config.TelemetryRetryInterval()
		d.telemetry.OnStateChange = func(_, to telemetry.State) {
			d.metrics.TelemetryConnected(to == telemetry.Connected)
		}
		tel = d.telemetry
	}

	d.loop = NewLoop(LoopOptions{
		Sampler:       o.Sampler,
		Store:         store,
		Bounds:        bounds,
		Page:          d.page,
		Hub:           d.hub,
		Telemetry:     tel,
		Metrics:       d.metrics,
		TickInterval:  o.Config.TickInterval(),
		SamplingTicks: o.Config.SamplingTicks(),
	})

	d.push = push.NewServer(d.hub, d.onPushMessage)
	d.router = d.setupRoutes()

	return d, nil
}

func (d *Daemon) onPushMessage(msg []byte) {
	if d.console == nil {
		d.log.WithField("message", string(msg)).Debug("received push message")
		return
	}
	d.console.Echo(msg)
}

// Handler returns the HTTP API.
func (d *Daemon) Handler() http.Handler {
	return d.router
}

// PushHandler returns the WebSocket push endpoint.
func (d *Daemon) PushHandler() http.Handler {
	return d.push
}

// Loop returns the level loop.
func (d *Daemon) Loop() *Loop {
	return d.loop
}

// Reload applies the settings that can change without a restart.
func (d *Daemon) Reload() {
	d.loop.SetSamplingTicks(d.conf.SamplingTicks())
}

// Serve binds both listeners and runs until ctx is done. A bind failure is
// returned before anything else starts.
func (d *Daemon) Serve(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", d.conf.HTTPAddr())
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", d.conf.HTTPAddr())
	}
	pushLn, err := net.Listen("tcp", d.conf.PushAddr())
	if err != nil {
		_ = httpLn.Close()
		return pkgerrors.Wrapf(err, "failed to listen on %s", d.conf.PushAddr())
	}

	return d.serve(ctx, httpLn, pushLn)
}

func (d *Daemon) serve(ctx context.Context, httpLn, pushLn net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{Handler: d.router, ReadHeaderTimeout: 10 * time.Second}
	pushSrv := &http.Server{Handler: d.push, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 2)
	for _, s := range []struct {
		name string
		srv  *http.Server
		ln   net.Listener
	}{
		{"http", srv, httpLn},
		{"push", pushSrv, pushLn},
	} {
		s := s // per-iteration copy; the module targets go 1.21 loop semantics
		go func() {
			logrus.Infof("%s server listening on %s", s.name, s.ln.Addr().String())
			if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- pkgerrors.Wrapf(err, "%s server failed", s.name)
			}
		}()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.loop.Run(ctx)
	}()

	if d.console != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.console.Run(ctx, func(frame string) { d.hub.Broadcast(frame) })
			if err != nil {
				logrus.Errorf("serial console stopped: %v", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
		cancel()
	}

	logrus.Info("shutting down http servers")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	for _, s := range []*http.Server{srv, pushSrv} {
		if err := s.Shutdown(shutdownCtx); err != nil {
			logrus.Errorf("failed to shutdown http server: %v", err)
		}
	}

	wg.Wait()

	if d.telemetry != nil {
		logrus.Info("closing telemetry session")
		d.telemetry.Close()
	}

	return serveErr
}

// Run opens the hardware described by the config at configPath and serves
// until SIGINT or SIGTERM.
func Run(configPath string) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	var sampler sensor.Sampler
	if conf.MockSensor() {
		logrus.Warn("using simulated sensor")
		sampler = sensor.NewMock(float64(nvram.DefaultMin)-5, float64(nvram.DefaultMax)+5, 2*time.Minute, 0.5)
	} else {
		sampler, err = sensor.Open(conf.TriggerPin(), conf.EchoPin(), conf.EchoTimeout())
		if err != nil {
			return err
		}
	}

	mem, err := nvram.OpenFile(conf.NVRAMPath())
	if err != nil {
		return err
	}

	o := Options{
		Config:  conf,
		Sampler: sampler,
		Memory:  mem,
	}

	if conf.TelemetryEnabled() {
		o.Session = telemetry.NewPahoSession(telemetry.PahoOptions{
			Broker:   conf.TelemetryBroker(),
			ClientID: conf.TelemetryClientID(),
			Username: conf.TelemetryUsername(),
			Password: conf.TelemetryPassword(),
			Topics:   telemetry.NewTopics(conf.TelemetryTopicPrefix()),
		})
	} else {
		logrus.Info("telemetry is disabled, no broker configured")
	}

	if port := conf.ConsolePort(); port != "" {
		p, err := console.OpenSerial(port, conf.ConsoleBaudRate())
		if err != nil {
			return err
		}
		o.Console = console.New(p)
	}

	d, err := New(o)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			if err := conf.Load(); err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			d.Reload()
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigc
		logrus.Infof("caught signal \"%s\": shutting down.", sig)
		cancel()
	}()

	err = d.Serve(ctx)
	logrus.Info("exiting")
	return err
}
