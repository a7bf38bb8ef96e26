package levelcan

import (
	"context"
	"encoding/binary"

	"github.com/brutella/can"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// minPayload is the number of data bytes needed for a full reading:
	// three big-endian words for fuel level, internal and external
	// temperature.
	minPayload = 6

	rawExternalDisabled     uint16 = 0xFFFF
	rawExternalOpenCircuit  uint16 = 0x8001
	rawExternalShortCircuit uint16 = 0x8002
)

// ExternalStatus classifies the external temperature channel. The sender
// reuses the value word for fault signalling, so a reading is only a
// temperature when the status is ExternalOK.
type ExternalStatus int

const (
	ExternalOK ExternalStatus = iota
	ExternalDisabled
	ExternalOpenCircuit
	ExternalShortCircuit
)

func (s ExternalStatus) String() string {
	switch s {
	case ExternalDisabled:
		return "Disabled"
	case ExternalOpenCircuit:
		return "Open Circuit"
	case ExternalShortCircuit:
		return "Short Circuit"
	}
	return "OK"
}

// Reading is one decoded fuel and temperature frame.
type Reading struct {
	FuelLevel      uint16
	InternalTemp   uint16
	ExternalTemp   uint16
	ExternalStatus ExternalStatus
}

type Callbacks struct {
	// Reading receives every decodable frame.
	Reading func(Reading)
	// Malformed fires for frames too short to decode. The sender module
	// is the only node on the bus, so even a bad frame proves it alive.
	Malformed func()
}

type CANBus interface {
	SubscribeFunc(can.HandlerFunc)
	ConnectAndPublish() error
	Disconnect() error
}

type Connection struct {
	bus CANBus
	cb  Callbacks
}

var newBus = func(interfaceName string) (CANBus, error) {
	return can.NewBusForInterfaceWithName(interfaceName)
}

func Connect(interfaceName string) (*Connection, error) {
	bus, err := newBus(interfaceName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open CAN interface %v", interfaceName)
	}

	return &Connection{
		bus: bus,
	}, nil
}

func (c *Connection) Start(ctx context.Context, cb Callbacks) error {
	c.cb = cb
	c.bus.SubscribeFunc(c.handleFrame)
	log.Info("CAN bus opened and subscribed")

	go func() {
		<-ctx.Done()
		log.Infof("stopping CAN bus: %v", ctx.Err())
		if err := c.bus.Disconnect(); err != nil {
			log.WithField("err", err).Warn("unable to disconnect CAN bus after context")
		}
	}()

	return c.bus.ConnectAndPublish()
}

func (c *Connection) Close() error {
	if c.bus == nil {
		return errors.New("CAN bus not connected")
	}
	return c.bus.Disconnect()
}

func (c *Connection) handleFrame(frame can.Frame) {
	log.WithField("canID", frame.ID).
		WithField("length", frame.Length).
		Debug("received CAN frame")

	r, ok := DecodeReading(frame)
	if !ok {
		log.WithField("length", frame.Length).Debug("frame too short for reading")
		if c.cb.Malformed != nil {
			c.cb.Malformed()
		}
		return
	}
	if c.cb.Reading != nil {
		c.cb.Reading(r)
	}
}

// DecodeReading extracts a Reading from a frame. Frames are accepted from
// any CAN ID; the fuel module owns the bus.
func DecodeReading(frame can.Frame) (Reading, bool) {
	if frame.Length < minPayload {
		return Reading{}, false
	}

	r := Reading{
		FuelLevel:    binary.BigEndian.Uint16(frame.Data[0:2]),
		InternalTemp: binary.BigEndian.Uint16(frame.Data[2:4]),
		ExternalTemp: binary.BigEndian.Uint16(frame.Data[4:6]),
	}
	switch r.ExternalTemp {
	case rawExternalDisabled:
		r.ExternalStatus = ExternalDisabled
	case rawExternalOpenCircuit:
		r.ExternalStatus = ExternalOpenCircuit
	case rawExternalShortCircuit:
		r.ExternalStatus = ExternalShortCircuit
	}
	return r, true
}
