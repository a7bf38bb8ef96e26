package wt901

import (
	"context"
	"encoding/binary"
	"io"
	"math"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// FrameSize is the full length of a WT901 packet including the
	// trailing checksum byte.
	FrameSize = 11

	// Header starts every WT901 packet.
	Header byte = 0x55

	// TypeAngle identifies the roll/pitch/yaw packet.
	TypeAngle byte = 0x53

	rawScale         = 32768.0
	fullScaleDegrees = 180.0

	// maxBuffer bounds the reassembly buffer. When the consumer stalls
	// long enough to hit it the stalest bytes are dropped, the same way a
	// saturated UART FIFO behaves.
	maxBuffer = 4096
)

// Parser reassembles angle frames from an unaligned serial byte stream.
// It consumes at most one byte on a header mismatch and never discards a
// partially received frame, so a stream that pauses mid-frame resumes
// cleanly on the next Feed.
type Parser struct {
	buf []byte
}

func (p *Parser) Feed(b []byte) {
	p.buf = append(p.buf, b...)
	if len(p.buf) > maxBuffer {
		drop := len(p.buf) - maxBuffer
		log.WithField("dropped", drop).Debug("inclinometer buffer overflow")
		p.buf = append(p.buf[:0], p.buf[drop:]...)
	}
}

// Next attempts to decode a single angle frame. A short buffer consumes
// nothing, a header mismatch consumes one byte to resynchronize, and any
// full frame of the wrong type is skipped. The checksum byte is not
// verified; the sensor link is short and framing errors show up as header
// mismatches instead.
func (p *Parser) Next() (float64, bool) {
	if len(p.buf) < FrameSize {
		return 0, false
	}
	if p.buf[0] != Header {
		p.buf = p.buf[1:]
		return 0, false
	}

	frame := p.buf[:FrameSize-1]
	p.buf = p.buf[FrameSize-1:]
	if frame[1] != TypeAngle {
		return 0, false
	}

	raw := int16(binary.LittleEndian.Uint16(frame[2:4]))
	return float64(raw) / rawScale * fullScaleDegrees, true
}

// Buffered reports how many bytes are waiting for reassembly.
func (p *Parser) Buffered() int {
	return len(p.buf)
}

// AngleFrame encodes pitch in degrees as a complete angle packet. Roll,
// yaw and temperature words are zero.
func AngleFrame(pitch float64) []byte {
	raw := int16(math.Round(pitch / fullScaleDegrees * rawScale))
	f := make([]byte, FrameSize)
	f[0] = Header
	f[1] = TypeAngle
	binary.LittleEndian.PutUint16(f[2:4], uint16(raw))
	var sum byte
	for _, b := range f[:FrameSize-1] {
		sum += b
	}
	f[FrameSize-1] = sum
	return f
}

// Callbacks receives raw byte chunks as they arrive from the sensor.
type Callbacks struct {
	Data func([]byte)
}

type Connection struct {
	port io.ReadWriteCloser
}

var serialOpen = func(options serial.OpenOptions) (io.ReadWriteCloser, error) {
	return serial.Open(options)
}

func Connect(portName string, baudRate uint) (*Connection, error) {
	port, err := serialOpen(serial.OpenOptions{
		PortName:        portName,
		BaudRate:        baudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open inclinometer port %v", portName)
	}
	return &Connection{
		port: port,
	}, nil
}

// Start reads from the serial port until the context is cancelled or the
// port fails. Chunks are handed to the Data callback as received, with no
// frame alignment.
func (c *Connection) Start(ctx context.Context, cb Callbacks) error {
	log.Info("inclinometer port opened")

	go func() {
		<-ctx.Done()
		log.Infof("stopping inclinometer: %v", ctx.Err())
		if err := c.port.Close(); err != nil {
			log.WithField("err", err).Warn("unable to close inclinometer port after context")
		}
	}()

	buf := make([]byte, 64)
	for {
		n, err := c.port.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "inclinometer read failed")
		}
		if n > 0 && cb.Data != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			cb.Data(chunk)
		}
	}
}

func (c *Connection) Close() error {
	if c.port == nil {
		return errors.New("inclinometer port not open")
	}
	return c.port.Close()
}
