package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/wle/pkg/sensor"
)

func TestDistanceToPercentage(t *testing.T) {
	b := Bounds{Min: 20, Max: 69}

	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{name: "below min", distance: 3, want: 0},
		{name: "at min", distance: 20, want: 0},
		{name: "midpoint", distance: 44.5, want: 50},
		{name: "at max", distance: 69, want: 100},
		{name: "above max", distance: 70, want: 100},
		{name: "negative", distance: -5, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DistanceToPercentage(tt.distance, b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDistanceToPercentage_Monotonic(t *testing.T) {
	b := Bounds{Min: 20, Max: 69}

	prev := -1.0
	for d := float64(b.Min); d <= float64(b.Max); d += 0.25 {
		got, err := DistanceToPercentage(d, b)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev, "distance %v", d)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
		prev = got
	}
}

func TestToPercentage_RejectsDegenerateBounds(t *testing.T) {
	for _, b := range []Bounds{{Min: 30, Max: 30}, {Min: 0, Max: 0}, {Min: 69, Max: 20}} {
		for _, us := range []uint32{0, 1176, 4058, 60000} {
			_, err := ToPercentage(sensor.RawSample{EchoDurationMicros: us}, b)
			assert.ErrorIs(t, err, ErrInvalidBounds, "bounds %+v sample %d", b, us)
		}
	}
}

func TestToPercentage_UsesEchoDistance(t *testing.T) {
	// 2000us * 0.034 / 2 = 34cm
	got, err := ToPercentage(sensor.RawSample{EchoDurationMicros: 2000}, Bounds{Min: 24, Max: 44})
	require.NoError(t, err)
	assert.InDelta(t, 50, got, 1e-9)
}

func TestDetector_ShouldEmit(t *testing.T) {
	d := NewDetector()
	d.Set(50)

	tests := []struct {
		level float64
		want  bool
	}{
		{level: 50, want: false},
		{level: 52, want: false},
		{level: 53, want: true},
		{level: 48, want: false},
		{level: 47, want: true},
		{level: 52.5, want: true},
	}
	for _, tt := range tests {
		if got := d.ShouldEmit(tt.level); got != tt.want {
			t.Errorf("ShouldEmit(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestDetector_FirstSampleAlwaysEmits(t *testing.T) {
	for _, l := range []float64{0, 1, 50, 100} {
		d := NewDetector()
		assert.True(t, d.ShouldEmit(l), "level %v", l)
	}

	d := NewDetector()
	_, ok := d.Last()
	assert.False(t, ok)

	d.Set(0)
	last, ok := d.Last()
	assert.True(t, ok)
	assert.Equal(t, 0.0, last)
}
