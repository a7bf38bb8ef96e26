package tiltrig

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type simFixture struct {
	rig           *Rig
	sim           *SimPlant
	in1, in2, ena *gpiotest.Pin
}

func newSimFixture() *simFixture {
	f := &simFixture{
		in1: &gpiotest.Pin{N: "IN1"},
		in2: &gpiotest.Pin{N: "IN2"},
		ena: &gpiotest.Pin{N: "ENA"},
	}
	actuator := NewActuatorDriver(f.in1, f.in2, f.ena)
	f.rig = NewRig(newFakeClock(), actuator, &bytes.Buffer{})
	f.sim = f.rig.NewSimPlant(f.in1, f.in2, f.ena)
	return f
}

func TestSimPlantIdle(t *testing.T) {
	f := newSimFixture()
	before := f.sim.pitch
	f.sim.Step()
	assert.Equal(t, before, f.sim.pitch)
}

func TestSimPlantFollowsActuator(t *testing.T) {
	f := newSimFixture()
	start := f.sim.pitch

	f.rig.Actuator.Backward()
	f.sim.Step()
	assert.Greater(t, f.sim.pitch, start)

	f.rig.Actuator.Forward()
	f.sim.Step()
	f.sim.Step()
	assert.Less(t, f.sim.pitch, start)

	// power gated off: direction lines alone do nothing
	f.rig.Actuator.Stop()
	require.NoError(t, f.in1.Out(gpio.High))
	level := f.sim.pitch
	f.sim.Step()
	assert.Equal(t, level, f.sim.pitch)
}

func TestSimPlantFeedsAngleFrames(t *testing.T) {
	f := newSimFixture()
	f.sim.Step()

	sample := f.rig.Pitch.Poll()
	require.True(t, sample.Valid)
	assert.InDelta(t, f.sim.pitch, sample.Degrees, 0.01)
}

func TestSimPlantCanCadence(t *testing.T) {
	f := newSimFixture()
	for i := 0; i < simCanEvery; i++ {
		f.sim.Step()
	}
	reading := f.rig.CanReader.Poll()
	require.True(t, reading.HasData)
	firstFuel := reading.FuelLevel

	// fuel drains as the run goes on
	for i := 0; i < simCanEvery*25; i++ {
		f.sim.Step()
	}
	reading = f.rig.CanReader.Poll()
	assert.Less(t, reading.FuelLevel, firstFuel)
	assert.True(t, reading.ExternalValid())
}
