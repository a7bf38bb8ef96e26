package tiltrig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func testActuator() (*ActuatorDriver, *gpiotest.Pin, *gpiotest.Pin, *gpiotest.Pin) {
	in1 := &gpiotest.Pin{N: "IN1"}
	in2 := &gpiotest.Pin{N: "IN2"}
	ena := &gpiotest.Pin{N: "ENA"}
	return NewActuatorDriver(in1, in2, ena), in1, in2, ena
}

func TestActuatorForward(t *testing.T) {
	a, in1, in2, ena := testActuator()
	a.Forward()
	assert.Equal(t, gpio.High, in1.L)
	assert.Equal(t, gpio.Low, in2.L)
	assert.Equal(t, gpio.High, ena.L)
	assert.True(t, a.IsMoving())
	assert.Equal(t, Forward, a.Command())
}

func TestActuatorBackward(t *testing.T) {
	a, in1, in2, ena := testActuator()
	a.Backward()
	assert.Equal(t, gpio.Low, in1.L)
	assert.Equal(t, gpio.High, in2.L)
	assert.Equal(t, gpio.High, ena.L)
	assert.True(t, a.IsMoving())
	assert.Equal(t, Backward, a.Command())
}

func TestActuatorStop(t *testing.T) {
	a, in1, in2, ena := testActuator()
	a.Forward()
	a.Stop()
	assert.Equal(t, gpio.Low, in1.L)
	assert.Equal(t, gpio.Low, in2.L)
	assert.Equal(t, gpio.Low, ena.L)
	assert.False(t, a.IsMoving())
	assert.Equal(t, Stop, a.Command())
}

func TestActuatorDirectionExclusive(t *testing.T) {
	a, in1, in2, _ := testActuator()
	a.Forward()
	a.Backward()
	a.Forward()
	// only one direction line high after any command sequence
	assert.NotEqual(t, in1.L, in2.L)
}

func TestActuatorApply(t *testing.T) {
	a, _, _, ena := testActuator()
	a.Apply(Forward)
	assert.Equal(t, Forward, a.Command())
	a.Apply(Backward)
	assert.Equal(t, Backward, a.Command())
	a.Apply(Stop)
	assert.Equal(t, Stop, a.Command())
	assert.Equal(t, gpio.Low, ena.L)
}
