// Package nvram emulates a small byte-addressed EEPROM and stores the
// level calibration bounds in it.
package nvram

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Size is the size of the memory image in bytes.
const Size = 512

// Memory is byte-addressed non-volatile memory. Writes become durable on
// Commit.
type Memory interface {
	Read(addr int) (byte, error)
	Write(addr int, b byte) error
	Commit() error
}

func checkAddr(addr int) error {
	if addr < 0 || addr >= Size {
		return fmt.Errorf("address %d out of range [0, %d)", addr, Size)
	}
	return nil
}

// Image is an in-memory Memory. Commit is a no-op.
type Image struct {
	mu  sync.RWMutex
	buf [Size]byte
}

var _ Memory = &Image{}

// NewMock returns an in-memory image with prefilled bytes.
func NewMock(prefill map[int]byte) *Image {
	m := &Image{}
	for addr, b := range prefill {
		if err := m.Write(addr, b); err != nil {
			panic(err)
		}
	}
	return m
}

// Read implements Memory.
func (m *Image) Read(addr int) (byte, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buf[addr], nil
}

// Write implements Memory.
func (m *Image) Write(addr int, b byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf[addr] = b
	return nil
}

// Commit implements Memory.
func (m *Image) Commit() error {
	return nil
}

// File is a Memory persisted to a file. The whole image is read on open
// and rewritten atomically on Commit.
type File struct {
	Image
	path string
}

var _ Memory = &File{}

// OpenFile loads the image at path. A missing file yields a zeroed image
// that is created on the first Commit.
func OpenFile(path string) (*File, error) {
	f := &File{path: path}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("path", path).Info("nvram image does not exist, starting from a blank image")
			return f, nil
		}
		return nil, pkgerrors.Wrapf(err, "failed to read nvram image %s", path)
	}
	if len(b) > Size {
		return nil, pkgerrors.Errorf("nvram image %s is %d bytes, larger than %d", path, len(b), Size)
	}
	copy(f.buf[:], b)

	return f, nil
}

// Commit writes the image to disk.
func (f *File) Commit() error {
	f.mu.RLock()
	buf := f.buf
	f.mu.RUnlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*")
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to create temporary file in %s", dir)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(buf[:]); err != nil {
		_ = tmp.Close()
		return pkgerrors.Wrapf(err, "failed to write nvram image %s", tmp.Name())
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return pkgerrors.Wrapf(err, "failed to sync nvram image %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return pkgerrors.Wrapf(err, "failed to close nvram image %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return pkgerrors.Wrapf(err, "failed to replace nvram image %s", f.path)
	}

	logrus.WithField("path", f.path).Trace("nvram image committed")

	return nil
}
