package tiltrig

import (
	"context"
	"io"
)

const (
	// inclinometerBufferDepth buffers raw serial chunks between the
	// transport pump and the control goroutine. The pump drops chunks
	// when the control loop falls behind.
	inclinometerBufferDepth = 64
	canBufferDepth          = 16
)

// Rig wires the sensor readers, actuator and record emitter together
// around one clock. All state flows through the control goroutine; the
// transport pumps only feed the buffered channels.
type Rig struct {
	Clock      Clock
	Actuator   *ActuatorDriver
	Pitch      *InclinometerReader
	CanReader  *CanSensorReader
	Controller *PositionController
	Emitter    *RecordEmitter

	byteChan  chan []byte
	eventChan chan canEvent
}

func NewRig(clock Clock, actuator *ActuatorDriver, out io.Writer) *Rig {
	byteChan := make(chan []byte, inclinometerBufferDepth)
	eventChan := make(chan canEvent, canBufferDepth)

	pitch := NewInclinometerReader(byteChan)
	canReader := NewCanSensorReader(eventChan, clock)

	return &Rig{
		Clock:      clock,
		Actuator:   actuator,
		Pitch:      pitch,
		CanReader:  canReader,
		Controller: NewPositionController(actuator, pitch, clock),
		Emitter:    NewRecordEmitter(out, clock, pitch, canReader),
		byteChan:   byteChan,
		eventChan:  eventChan,
	}
}

// Start launches the sensor transports. They reconnect for as long as
// the context lives.
func (r *Rig) Start(ctx context.Context, cfg *Config) {
	go runInclinometer(ctx, cfg.Inclinometer.Port, cfg.Inclinometer.BaudRate, r.byteChan)
	go runCanSensor(ctx, cfg.CAN.Interface, r.eventChan)
}

func (r *Rig) AddForwarder(f Forwarder) {
	r.Emitter.AddForwarder(f)
}
