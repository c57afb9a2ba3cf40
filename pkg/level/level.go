// Package level maps ultrasonic distance readings to a calibrated fill
// percentage and decides when a new percentage is worth reporting.
package level

import (
	"errors"
	"fmt"

	"github.com/charlie0129/wle/pkg/sensor"
)

// ErrInvalidBounds is returned when the calibration bounds cannot define a
// mapping, i.e. Max is not strictly greater than Min.
var ErrInvalidBounds = errors.New("invalid calibration bounds")

// Bounds are the distances, in centimeters, that correspond to 0% and 100%.
type Bounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Validate reports whether the bounds can be used for mapping.
func (b Bounds) Validate() error {
	if b.Max <= b.Min {
		return fmt.Errorf("%w: max %d must be greater than min %d", ErrInvalidBounds, b.Max, b.Min)
	}
	return nil
}

// ToPercentage converts a raw sample into a percentage in [0, 100].
func ToPercentage(sample sensor.RawSample, b Bounds) (float64, error) {
	return DistanceToPercentage(sample.DistanceCm(), b)
}

// DistanceToPercentage converts a distance in centimeters into a
// percentage in [0, 100].
func DistanceToPercentage(distance float64, b Bounds) (float64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}

	pct := 100 / float64(b.Max-b.Min) * (distance - float64(b.Min))
	if pct <= 0 {
		return 0, nil
	}
	if pct >= 100 {
		return 100, nil
	}
	return pct, nil
}
