package tiltrig

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// pitchRetryAttempts and pitchRetryDelay bound how long the
	// controller waits for a usable pitch sample before giving up.
	pitchRetryAttempts = 1000
	pitchRetryDelay    = 10 * time.Millisecond

	// movementBurst is how long the actuator runs per correction before
	// the platform is allowed to settle for stabilizeTime.
	movementBurst = 200 * time.Millisecond
	stabilizeTime = 1000 * time.Millisecond

	// tickQuantum is the pacing step of every timed loop. The record
	// emitter decides for itself which quanta are data ticks.
	tickQuantum = time.Millisecond
)

// Outcome reports how a DriveTo attempt ended.
type Outcome int

const (
	// Reached means the platform settled inside the tolerance band.
	Reached Outcome = iota
	// SensorUnavailable means no usable pitch arrived before the first
	// correction; the platform was never moved.
	SensorUnavailable
	// LostSensor means pitch readings stopped mid-adjustment; the
	// actuator was stopped where it was.
	LostSensor
)

func (o Outcome) String() string {
	switch o {
	case SensorUnavailable:
		return "sensor unavailable"
	case LostSensor:
		return "lost sensor"
	}
	return "reached"
}

// TickFunc runs once per pacing quantum while the controller moves or
// settles, carrying the movement label for any record emitted then.
type TickFunc func(direction string)

// DirectionMap tells the controller which drive command corrects which
// error sign for a given target.
type DirectionMap struct {
	// TooHigh corrects pitch above the target band.
	TooHigh MotionCommand
	// TooLow corrects pitch below it.
	TooLow MotionCommand
}

// defaultDirectionMaps is keyed by the sign of the target angle. The rig
// geometry makes the mapping the same in all three regimes; the table
// exists so a rig whose linkage reverses over center can be calibrated
// per regime.
var defaultDirectionMaps = map[int]DirectionMap{
	1:  {TooHigh: Forward, TooLow: Backward},
	0:  {TooHigh: Forward, TooLow: Backward},
	-1: {TooHigh: Forward, TooLow: Backward},
}

// PositionController drives the platform to a target pitch with short
// actuator bursts followed by settle pauses, re-measuring between
// corrections.
type PositionController struct {
	actuator *ActuatorDriver
	pitch    *InclinometerReader
	clock    Clock
	maps     map[int]DirectionMap
}

func NewPositionController(actuator *ActuatorDriver, pitch *InclinometerReader, clock Clock) *PositionController {
	return &PositionController{
		actuator: actuator,
		pitch:    pitch,
		clock:    clock,
		maps:     defaultDirectionMaps,
	}
}

// DriveTo moves the platform until pitch is within tolerance of target.
// onTick, which may be nil, runs every pacing quantum during movement and
// settling. Whatever the outcome, the actuator is stopped before
// returning.
func (c *PositionController) DriveTo(target, tolerance float64, onTick TickFunc) Outcome {
	pitch, ok := c.acquirePitch()
	if !ok {
		log.WithField("target", target).Warn("no usable pitch reading")
		return SensorUnavailable
	}
	log.WithField("target", target).
		WithField("pitch", pitch).
		Debug("drive starting")

	m := c.directionMap(target)
	outcome := Reached
	for pitch < target-tolerance || pitch > target+tolerance {
		var cmd MotionCommand
		var direction string
		if pitch > target+tolerance {
			cmd = m.TooHigh
			direction = DirectionDown
		} else {
			cmd = m.TooLow
			direction = DirectionUp
		}
		log.WithField("target", target).
			WithField("pitch", pitch).
			WithField("command", cmd).
			Debug("correcting")

		c.actuator.Apply(cmd)
		c.tickFor(movementBurst, onTick, direction)
		c.actuator.Stop()
		c.tickFor(stabilizeTime, onTick, DirectionStabilizing)

		pitch, ok = c.acquirePitch()
		if !ok {
			log.WithField("target", target).Warn("pitch readings lost mid-adjustment")
			outcome = LostSensor
			break
		}
	}
	c.actuator.Stop()

	if outcome == Reached {
		log.WithField("target", target).
			WithField("pitch", pitch).
			Debug("target reached")
	}
	return outcome
}

// acquirePitch polls until a usable sample arrives, bounded by the retry
// budget.
func (c *PositionController) acquirePitch() (float64, bool) {
	for attempt := 0; attempt < pitchRetryAttempts; attempt++ {
		s := c.pitch.Poll()
		if s.Usable() {
			return s.Degrees, true
		}
		c.clock.Sleep(pitchRetryDelay)
	}
	return 0, false
}

func (c *PositionController) tickFor(d time.Duration, onTick TickFunc, direction string) {
	end := c.clock.Now().Add(d)
	for c.clock.Now().Before(end) {
		if onTick != nil {
			onTick(direction)
		}
		c.clock.Sleep(tickQuantum)
	}
}

func (c *PositionController) directionMap(target float64) DirectionMap {
	switch {
	case target > 0:
		return c.maps[1]
	case target < 0:
		return c.maps[-1]
	}
	return c.maps[0]
}
