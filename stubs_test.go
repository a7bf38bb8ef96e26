package tiltrig

import (
	"context"
	"time"

	"github.com/jd3nn1s/tiltrig/levelcan"
	"github.com/jd3nn1s/tiltrig/wt901"
)

type sensorStub struct {
	startChan chan struct{}
	errChan   chan error
	fnChan    chan func()
}

func createSensorStub() *sensorStub {
	ret := sensorStub{
		startChan: make(chan struct{}),
		errChan:   make(chan error),
		fnChan:    make(chan func()),
	}
	return &ret
}

func (s *sensorStub) Close() error {
	return nil
}

func (s *sensorStub) start(ctx context.Context) error {
	select {
	case s.startChan <- struct{}{}:
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-s.errChan:
			return err
		case fn := <-s.fnChan:
			fn()
		}
	}
}

type inclinometerStub struct {
	sensorStub
	callbacks wt901.Callbacks
}

func createInclinometerStub() *inclinometerStub {
	return &inclinometerStub{
		sensorStub: *createSensorStub(),
	}
}

func (s *inclinometerStub) Start(ctx context.Context, callbacks wt901.Callbacks) error {
	s.callbacks = callbacks
	return s.sensorStub.start(ctx)
}

type levelCANStub struct {
	sensorStub
	callbacks levelcan.Callbacks
}

func createLevelCANStub() *levelCANStub {
	return &levelCANStub{
		sensorStub: *createSensorStub(),
	}
}

func (s *levelCANStub) Start(ctx context.Context, callbacks levelcan.Callbacks) error {
	s.callbacks = callbacks
	return s.sensorStub.start(ctx)
}

type forwarderStub struct {
	records []Record
}

func (fwd *forwarderStub) Forward(rec *Record) error {
	fwd.records = append(fwd.records, *rec)
	return nil
}

// fakeClock advances only when the code under test sleeps, so timed
// loops run instantly and deterministically. Single goroutine use only.
type fakeClock struct {
	now    time.Time
	onTick func(now time.Time)
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now: time.Unix(1000, 0),
	}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.now = c.now.Add(d)
	if c.onTick != nil {
		c.onTick(c.now)
	}
}

// attachSim steps the simulated platform once per sensor interval as the
// fake clock advances.
func attachSim(clock *fakeClock, sim *SimPlant) {
	lastStep := clock.now
	clock.onTick = func(now time.Time) {
		for !lastStep.Add(simStep).After(now) {
			lastStep = lastStep.Add(simStep)
			sim.Step()
		}
	}
}
