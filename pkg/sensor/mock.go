package sensor

import (
	"math/rand"
	"sync"
	"time"
)

// Mock simulates a container filling and draining: the distance sweeps
// linearly from Near to Far and back over Period, plus uniform jitter.
type Mock struct {
	Near   float64
	Far    float64
	Period time.Duration
	Jitter float64

	mu    sync.Mutex
	start time.Time
	now   func() time.Time
	rnd   *rand.Rand
}

// NewMock returns a simulated sensor. A non-positive period means a minute.
func NewMock(near, far float64, period time.Duration, jitter float64) *Mock {
	if period <= 0 {
		period = time.Minute
	}
	return &Mock{
		Near:   near,
		Far:    far,
		Period: period,
		Jitter: jitter,
		now:    time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Sample implements Sampler.
func (m *Mock) Sample() (RawSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.start.IsZero() {
		m.start = now
	}

	phase := float64(now.Sub(m.start)%m.Period) / float64(m.Period)
	// Triangle wave in [0, 1].
	tri := 2 * phase
	if tri > 1 {
		tri = 2 - tri
	}

	d := m.Near + (m.Far-m.Near)*tri
	if m.Jitter > 0 {
		d += (m.rnd.Float64()*2 - 1) * m.Jitter
	}

	return FromDistanceCm(d), nil
}
