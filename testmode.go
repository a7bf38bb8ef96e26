package tiltrig

import (
	"context"
	"time"

	"github.com/jd3nn1s/tiltrig/levelcan"
	"github.com/jd3nn1s/tiltrig/wt901"
	"periph.io/x/conn/v3/gpio"
)

const (
	// simStep is the simulated sensor cadence: one angle frame per step,
	// matching the 100 Hz data tick.
	simStep = 10 * time.Millisecond

	// simPitchRate is how fast the platform tilts under drive, in
	// degrees per second. Slow enough that one movement burst stays
	// within the controller's tolerance band.
	simPitchRate = 0.5

	// simCanEvery spaces fuel sender frames at one per ten steps.
	simCanEvery = 10
)

// SimPlant stands in for the physical platform when no hardware is
// attached. It watches the H-bridge pins the actuator drives, integrates
// pitch accordingly and feeds the rig synthetic WT901 frames and fuel
// sender readings.
type SimPlant struct {
	clock Clock
	in1   gpio.PinIO
	in2   gpio.PinIO
	ena   gpio.PinIO

	bytes  chan<- []byte
	events chan<- canEvent

	pitch        float64
	fuelLevel    float64
	internalTemp uint16
	externalTemp uint16
	steps        int
}

// NewSimPlant builds a simulated platform for this rig. The pins must be
// the same ones the rig's actuator drives.
func (r *Rig) NewSimPlant(in1, in2, ena gpio.PinIO) *SimPlant {
	return &SimPlant{
		clock:        r.Clock,
		in1:          in1,
		in2:          in2,
		ena:          ena,
		bytes:        r.byteChan,
		events:       r.eventChan,
		pitch:        1.7,
		fuelLevel:    8200,
		internalTemp: 2930,
		externalTemp: 2950,
	}
}

// Run steps the simulation until the context is cancelled.
func (p *SimPlant) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.clock.Sleep(simStep)
		p.Step()
	}
}

// Step advances the simulation by one sensor interval.
func (p *SimPlant) Step() {
	if p.ena.Read() == gpio.High {
		dt := simStep.Seconds()
		if p.in1.Read() == gpio.High {
			p.pitch -= simPitchRate * dt
		} else if p.in2.Read() == gpio.High {
			p.pitch += simPitchRate * dt
		}
	}

	select {
	case p.bytes <- wt901.AngleFrame(p.pitch):
	default:
	}

	p.steps++
	if p.steps%simCanEvery == 0 {
		p.fuelLevel -= 0.05
		p.sendReading()
	}
}

func (p *SimPlant) sendReading() {
	select {
	case p.events <- canEvent{reading: &levelcan.Reading{
		FuelLevel:    uint16(p.fuelLevel),
		InternalTemp: p.internalTemp,
		ExternalTemp: p.externalTemp,
	}}:
	default:
	}
}
