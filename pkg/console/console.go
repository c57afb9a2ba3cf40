// Package console bridges a serial command console and the push transport:
// every byte read from the console is broadcast as a single-character
// frame, and text frames from push clients are written back to it.
package console

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// DefaultBaudRate matches the firmware's serial console.
const DefaultBaudRate = 115200

// BroadcastFunc delivers one raw frame to push clients.
type BroadcastFunc func(frame string)

// Console is a bidirectional byte stream.
type Console struct {
	rw io.ReadWriter

	mu sync.Mutex // serializes writes
}

// New wraps rw.
func New(rw io.ReadWriter) *Console {
	return &Console{rw: rw}
}

// OpenSerial opens a serial port with 8N1 framing.
func OpenSerial(port string, baudRate int) (serial.Port, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open serial port %s", port)
	}
	logrus.WithFields(logrus.Fields{
		"port":     port,
		"baudRate": baudRate,
	}).Info("serial console opened")
	return p, nil
}

// Run reads the console until ctx is done or the stream ends, broadcasting
// each byte.
func (c *Console) Run(ctx context.Context, broadcast BroadcastFunc) error {
	if closer, ok := c.rw.(io.Closer); ok {
		go func() {
			<-ctx.Done()
			_ = closer.Close()
		}()
	}

	buf := make([]byte, 64)
	for {
		n, err := c.rw.Read(buf)
		for _, b := range buf[:n] {
			broadcast(string([]byte{b}))
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return pkgerrors.Wrap(err, "failed to read console")
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Echo writes a message received from a push client, followed by a line
// break.
func (c *Console) Echo(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.rw.Write(append(append([]byte(nil), msg...), '\r', '\n')); err != nil {
		logrus.Warnf("failed to write to console: %v", err)
	}
}
