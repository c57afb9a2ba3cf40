package nvram

import (
	"fmt"
	"math"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/wle/pkg/level"
)

// Reserved slots for the calibration bounds. Each slot holds a two-byte
// big-endian value.
const (
	MinAddr = 49
	MaxAddr = 51
)

// Bounds substituted for slots that read as zero, which is what a blank
// memory holds.
const (
	DefaultMin = 20
	DefaultMax = 69
)

// Store encodes integers into two-byte slots of a Memory.
type Store struct {
	mem Memory
}

// NewStore returns a Store over mem.
func NewStore(mem Memory) *Store {
	return &Store{mem: mem}
}

// Load reads the slot at addr.
func (s *Store) Load(addr int) (int, error) {
	hi, err := s.mem.Read(addr)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to read high byte at %d", addr)
	}
	lo, err := s.mem.Read(addr + 1)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to read low byte at %d", addr+1)
	}

	v := int(hi)<<8 | int(lo)

	logrus.WithFields(logrus.Fields{
		"addr": addr,
		"val":  v,
	}).Trace("load from nvram succeed")

	return v, nil
}

// Store writes value to the slot at addr, high byte first, and commits.
func (s *Store) Store(addr int, value int) error {
	if value < 0 || value > math.MaxUint16 {
		return fmt.Errorf("value %d does not fit in a two-byte slot", value)
	}

	if err := s.mem.Write(addr, byte(value>>8)); err != nil {
		return pkgerrors.Wrapf(err, "failed to write high byte at %d", addr)
	}
	if err := s.mem.Write(addr+1, byte(value&0xFF)); err != nil {
		return pkgerrors.Wrapf(err, "failed to write low byte at %d", addr+1)
	}
	if err := s.mem.Commit(); err != nil {
		return pkgerrors.Wrap(err, "failed to commit nvram")
	}

	logrus.WithFields(logrus.Fields{
		"addr": addr,
		"val":  value,
	}).Trace("write to nvram succeed")

	return nil
}

// LoadBounds reads both calibration slots, substituting the defaults for
// slots that hold zero.
func (s *Store) LoadBounds() (level.Bounds, error) {
	minLevel, err := s.loadOrDefault(MinAddr, DefaultMin, "min")
	if err != nil {
		return level.Bounds{}, err
	}
	maxLevel, err := s.loadOrDefault(MaxAddr, DefaultMax, "max")
	if err != nil {
		return level.Bounds{}, err
	}
	return level.Bounds{Min: minLevel, Max: maxLevel}, nil
}

func (s *Store) loadOrDefault(addr, def int, name string) (int, error) {
	v, err := s.Load(addr)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to load %s bound", name)
	}
	logrus.Infof("init %s level value: %d", name, v)
	if v == 0 {
		logrus.Infof("due to 0 value, updated %s level value to %d", name, def)
		return def, nil
	}
	return v, nil
}

// StoreMin persists the min bound.
func (s *Store) StoreMin(v int) error {
	return s.Store(MinAddr, v)
}

// StoreMax persists the max bound.
func (s *Store) StoreMax(v int) error {
	return s.Store(MaxAddr, v)
}
