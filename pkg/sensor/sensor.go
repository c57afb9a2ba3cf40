// Package sensor samples an HC-SR04 style ultrasonic transducer.
package sensor

import (
	"errors"
	"math"
)

// SoundVelocity is the speed of sound in cm per microsecond.
const SoundVelocity = 0.034

// ErrNoReading is returned when the echo line never completes a pulse
// within the echo timeout.
var ErrNoReading = errors.New("no echo received")

// RawSample is a single echo measurement.
type RawSample struct {
	EchoDurationMicros uint32
}

// DistanceCm converts the round-trip echo time to a one-way distance.
func (s RawSample) DistanceCm() float64 {
	return float64(s.EchoDurationMicros) * SoundVelocity / 2
}

// FromDistanceCm returns the sample an ideal sensor would produce for an
// object cm centimeters away. Distances below zero yield a zero sample.
func FromDistanceCm(cm float64) RawSample {
	if cm <= 0 {
		return RawSample{}
	}
	us := math.Round(cm * 2 / SoundVelocity)
	if us > math.MaxUint32 {
		us = math.MaxUint32
	}
	return RawSample{EchoDurationMicros: uint32(us)}
}

// Sampler produces raw samples. Sample blocks until a reading is available
// or the implementation's timeout elapses.
type Sampler interface {
	Sample() (RawSample, error)
}
