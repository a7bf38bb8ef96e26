package tiltrig

import (
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
)

// MotionCommand is the exclusive drive state of the linear actuator.
type MotionCommand int

const (
	Stop MotionCommand = iota
	// Forward extends the ram, pitching the platform down.
	Forward
	// Backward retracts the ram, pitching the platform up.
	Backward
)

func (m MotionCommand) String() string {
	switch m {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	}
	return "stop"
}

// ActuatorDriver owns the three H-bridge control lines. in1 and in2
// select travel direction and ena gates power, so at most one direction
// line is ever high while the bridge is enabled.
//
// The driver is not safe for concurrent use; only the control goroutine
// commands it.
type ActuatorDriver struct {
	in1, in2, ena gpio.PinIO
	command       MotionCommand
	moving        bool
}

func NewActuatorDriver(in1, in2, ena gpio.PinIO) *ActuatorDriver {
	a := &ActuatorDriver{
		in1: in1,
		in2: in2,
		ena: ena,
	}
	a.Stop()
	return a
}

// Forward drives the ram out. The platform pitches down.
func (a *ActuatorDriver) Forward() {
	a.set(a.in1, gpio.High)
	a.set(a.in2, gpio.Low)
	a.set(a.ena, gpio.High)
	a.command = Forward
	a.moving = true
}

// Backward drives the ram in. The platform pitches up.
func (a *ActuatorDriver) Backward() {
	a.set(a.in1, gpio.Low)
	a.set(a.in2, gpio.High)
	a.set(a.ena, gpio.High)
	a.command = Backward
	a.moving = true
}

// Stop cuts bridge power before clearing the direction lines so the
// motor never sees a live direction swap.
func (a *ActuatorDriver) Stop() {
	a.set(a.ena, gpio.Low)
	a.set(a.in1, gpio.Low)
	a.set(a.in2, gpio.Low)
	a.command = Stop
	a.moving = false
}

// Apply moves in the commanded direction, or stops.
func (a *ActuatorDriver) Apply(cmd MotionCommand) {
	switch cmd {
	case Forward:
		a.Forward()
	case Backward:
		a.Backward()
	default:
		a.Stop()
	}
}

func (a *ActuatorDriver) Command() MotionCommand {
	return a.command
}

func (a *ActuatorDriver) IsMoving() bool {
	return a.moving
}

func (a *ActuatorDriver) set(p gpio.PinIO, l gpio.Level) {
	if err := p.Out(l); err != nil {
		log.WithField("pin", p.Name()).
			WithField("err", err).
			Warn("actuator pin write failed")
	}
}
