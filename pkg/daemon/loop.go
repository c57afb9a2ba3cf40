package daemon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/wle/pkg/events"
	"github.com/charlie0129/wle/pkg/level"
	"github.com/charlie0129/wle/pkg/metrics"
	"github.com/charlie0129/wle/pkg/nvram"
	"github.com/charlie0129/wle/pkg/sensor"
	"github.com/charlie0129/wle/pkg/status"
	"github.com/charlie0129/wle/pkg/telemetry"
	"github.com/charlie0129/wle/pkg/types"
)

// ErrBusy is returned when the loop does not pick up a command in time,
// typically because it is blocked reconnecting to the telemetry broker.
var ErrBusy = errors.New("level loop is busy")

// Telemetry is the part of telemetry.Manager the loop drives.
type Telemetry interface {
	Connected() bool
	Connect(ctx context.Context, level int, hasLevel bool) error
	PublishLevel(level int) error
	State() telemetry.State
}

var _ Telemetry = &telemetry.Manager{}

type bound int

const (
	boundMin bound = iota
	boundMax
)

func (b bound) String() string {
	if b == boundMin {
		return "min"
	}
	return "max"
}

type command struct {
	bound bound
	value int
	reply chan commandResult
}

type commandResult struct {
	bounds level.Bounds
	err    error
}

// LoopOptions wire a Loop. Telemetry is nil when disabled.
type LoopOptions struct {
	Sampler   sensor.Sampler
	Store     *nvram.Store
	Bounds    level.Bounds
	Page      *status.Page
	Hub       *events.Hub
	Telemetry Telemetry
	Metrics   *metrics.Metrics

	TickInterval  time.Duration
	SamplingTicks int
}

// Loop is the single owner of the level state. Everything it owns is only
// touched from the goroutine running Run; other goroutines send commands
// and read snapshots.
type Loop struct {
	sampler   sensor.Sampler
	store     *nvram.Store
	fanout    *Fanout
	detector  *level.Detector
	telemetry Telemetry
	hub       *events.Hub
	metrics   *metrics.Metrics

	tickInterval  time.Duration
	samplingTicks atomic.Int64

	bounds  level.Bounds
	ticks   int
	lastErr string

	samples      uint64
	emissions    uint64
	lastSampleAt time.Time

	commands chan command

	mu   sync.RWMutex
	snap types.Status
}

// NewLoop returns a loop that has not emitted anything yet.
func NewLoop(o LoopOptions) *Loop {
	if o.TickInterval <= 0 {
		o.TickInterval = 10 * time.Millisecond
	}
	if o.SamplingTicks <= 0 {
		o.SamplingTicks = 100
	}

	d := level.NewDetector()
	l := &Loop{
		sampler:   o.Sampler,
		store:     o.Store,
		detector:  d,
		telemetry: o.Telemetry,
		hub:       o.Hub,
		metrics:   o.Metrics,
		fanout: &Fanout{
			detector:  d,
			page:      o.Page,
			hub:       o.Hub,
			telemetry: o.Telemetry,
			metrics:   o.Metrics,
		},
		tickInterval: o.TickInterval,
		bounds:       o.Bounds,
		commands:     make(chan command),
	}
	l.samplingTicks.Store(int64(o.SamplingTicks))

	if err := o.Bounds.Validate(); err != nil {
		logrus.Warnf("stored calibration cannot be used until it is fixed: %v", err)
	}

	l.publishSnapshot()
	return l
}

// SetSamplingTicks changes how many ticks pass between two samples. It is
// safe to call from any goroutine.
func (l *Loop) SetSamplingTicks(n int) {
	if n <= 0 {
		return
	}
	l.samplingTicks.Store(int64(n))
}

// Run ticks until ctx is done. The first tick runs immediately, so an
// enabled telemetry session is established before the first sample.
func (l *Loop) Run(ctx context.Context) {
	logrus.WithFields(logrus.Fields{
		"tickInterval":  l.tickInterval.String(),
		"samplingTicks": l.samplingTicks.Load(),
	}).Debug("level loop starts")

	t := time.NewTicker(l.tickInterval)
	defer t.Stop()

	l.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			logrus.Debug("level loop stopped")
			return
		case <-t.C:
			l.tick(ctx)
		}
	}
}

// tick is one iteration of the cooperative loop. Reconnecting to the
// telemetry broker blocks here, and with it sampling and calibration
// writes, until the broker accepts the session.
func (l *Loop) tick(ctx context.Context) {
	if l.telemetry != nil && !l.telemetry.Connected() {
		logrus.Info("connecting to telemetry broker...")
		last, ok := l.detector.Last()
		if err := l.telemetry.Connect(ctx, int(last), ok); err != nil {
			return
		}
		l.publishSnapshot()
	}

	select {
	case cmd := <-l.commands:
		l.apply(cmd)
	default:
	}

	l.ticks++
	if int64(l.ticks) >= l.samplingTicks.Load() {
		l.ticks = 0
		l.sampleOnce()
	}
}

// sampleOnce runs one sample → map → detect → emit cycle.
func (l *Loop) sampleOnce() {
	l.samples++
	l.lastSampleAt = time.Now().Round(0)
	defer l.publishSnapshot()

	sample, err := l.sampler.Sample()
	if err != nil {
		if errors.Is(err, sensor.ErrNoReading) {
			l.metrics.Sample(metrics.ResultNoReading, 0)
		} else {
			l.metrics.Sample(metrics.ResultError, 0)
		}
		l.reportError(err)
		return
	}

	distance := sample.DistanceCm()
	l.setDistance(distance)

	pct, err := level.ToPercentage(sample, l.bounds)
	if err != nil {
		l.metrics.Sample(metrics.ResultInvalidBounds, distance)
		l.reportError(err)
		return
	}
	l.metrics.Sample(metrics.ResultOK, distance)
	l.reportError(nil)

	logrus.WithFields(logrus.Fields{
		"echoMicros": sample.EchoDurationMicros,
		"distanceCm": distance,
		"level":      pct,
	}).Trace("sampled")

	if l.detector.ShouldEmit(pct) {
		l.fanout.Emit(pct)
		l.emissions++
	}
}

// reportError logs sampling errors once per distinct error instead of once
// per sample.
func (l *Loop) reportError(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	defer func() { l.lastErr = msg }()

	if msg == l.lastErr {
		if err != nil {
			logrus.Tracef("sampling failed: %v", err)
		}
		return
	}
	switch {
	case err == nil:
		logrus.Info("sampling recovered")
	case errors.Is(err, sensor.ErrNoReading):
		logrus.Warnf("sampling failed: %v", err)
	default:
		logrus.Errorf("sampling failed: %v", err)
	}
}

func (l *Loop) apply(cmd command) {
	var err error
	switch cmd.bound {
	case boundMin:
		err = l.store.StoreMin(cmd.value)
	case boundMax:
		err = l.store.StoreMax(cmd.value)
	}
	if err == nil {
		if cmd.bound == boundMin {
			l.bounds.Min = cmd.value
		} else {
			l.bounds.Max = cmd.value
		}
		logrus.WithFields(logrus.Fields{
			"min": l.bounds.Min,
			"max": l.bounds.Max,
		}).Infof("updated %s value to %d", cmd.bound, cmd.value)
		if verr := l.bounds.Validate(); verr != nil {
			logrus.Warn(verr)
		}
		l.publishSnapshot()
	}
	cmd.reply <- commandResult{bounds: l.bounds, err: err}
}

// setBound asks the loop to persist and apply a new bound.
func (l *Loop) setBound(ctx context.Context, b bound, value int) (level.Bounds, error) {
	cmd := command{bound: b, value: value, reply: make(chan commandResult, 1)}

	select {
	case l.commands <- cmd:
	case <-ctx.Done():
		return level.Bounds{}, ErrBusy
	}

	select {
	case r := <-cmd.reply:
		return r.bounds, r.err
	case <-ctx.Done():
		return level.Bounds{}, ErrBusy
	}
}

// SetMin persists and applies a new min bound.
func (l *Loop) SetMin(ctx context.Context, v int) (level.Bounds, error) {
	return l.setBound(ctx, boundMin, v)
}

// SetMax persists and applies a new max bound.
func (l *Loop) SetMax(ctx context.Context, v int) (level.Bounds, error) {
	return l.setBound(ctx, boundMax, v)
}

func (l *Loop) setDistance(d float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap.DistanceCm = d
}

func (l *Loop) publishSnapshot() {
	last, ok := l.detector.Last()

	tel := "disabled"
	if l.telemetry != nil {
		tel = l.telemetry.State().String()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.snap.Level = 0
	if ok {
		l.snap.Level = int(last)
	}
	l.snap.LevelSet = ok
	l.snap.MinValue = l.bounds.Min
	l.snap.MaxValue = l.bounds.Max
	l.snap.LastError = l.lastErr
	l.snap.Samples = l.samples
	l.snap.Emissions = l.emissions
	l.snap.Telemetry = tel
	l.snap.LastSampleAt = l.lastSampleAt
}

// Snapshot returns a copy of the loop state as of the last change.
func (l *Loop) Snapshot() types.Status {
	l.mu.RLock()
	s := l.snap
	l.mu.RUnlock()

	s.PushClients = l.hub.Len()
	return s
}
