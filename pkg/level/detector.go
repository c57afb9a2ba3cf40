package level

const (
	// Hysteresis is the minimum swing, in percentage points, a level must
	// move past the last emitted one before it is emitted again.
	Hysteresis = 2

	// Unset is the last-emitted value before anything was emitted. It lies
	// far enough outside [0, 100] that any first level passes.
	Unset = -1000.0
)

// Detector remembers the last emitted level and gates new ones with a
// hysteresis band. The zero value is not ready for use; see NewDetector.
type Detector struct {
	last float64
	band float64
}

// NewDetector returns a Detector with the default hysteresis and no level
// emitted yet.
func NewDetector() *Detector {
	return &Detector{last: Unset, band: Hysteresis}
}

// ShouldEmit reports whether newLevel differs from the last emitted level
// by strictly more than the hysteresis band.
func (d *Detector) ShouldEmit(newLevel float64) bool {
	return newLevel > d.last+d.band || newLevel < d.last-d.band
}

// Set records newLevel as emitted.
func (d *Detector) Set(newLevel float64) {
	d.last = newLevel
}

// Last returns the last emitted level and whether any level was emitted.
func (d *Detector) Last() (float64, bool) {
	return d.last, d.last != Unset
}
