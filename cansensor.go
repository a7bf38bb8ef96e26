package tiltrig

import (
	"context"
	"time"

	"github.com/jd3nn1s/tiltrig/levelcan"
	log "github.com/sirupsen/logrus"
)

// canEvent is one received frame. reading is nil when the frame carried
// too few bytes to decode; it still proves the sender alive.
type canEvent struct {
	reading *levelcan.Reading
}

type canPump struct {
	c             LevelCAN
	interfaceName string
	sendChan      chan<- canEvent
}

var levelCANConnect = func(interfaceName string) (LevelCAN, error) {
	return levelcan.Connect(interfaceName)
}

func (p *canPump) Open() error {
	c, err := levelCANConnect(p.interfaceName)
	p.c = c
	return err
}

func (p *canPump) Close() error {
	if p.c == nil {
		return nil
	}
	return p.c.Close()
}

func (p *canPump) Start(ctx context.Context) error {
	return p.c.Start(ctx, levelcan.Callbacks{
		Reading: func(r levelcan.Reading) {
			p.send(canEvent{reading: &r})
		},
		Malformed: func() {
			p.send(canEvent{})
		},
	})
}

func (p *canPump) send(ev canEvent) {
	select {
	case p.sendChan <- ev:
	default:
	}
}

func (p *canPump) Name() string {
	return "cansensor"
}

func runCanSensor(ctx context.Context, interfaceName string, sendChan chan<- canEvent) {
	err := retry(ctx, &canPump{
		interfaceName: interfaceName,
		sendChan:      sendChan,
	})
	if err != nil {
		log.Errorf("cansensor done: %v", err)
	}
}

// CanSensorReader caches the last complete reading from the fuel sender
// and tracks when the bus last showed any sign of life. Poll never
// blocks; with nothing queued it re-reports the cache unchanged.
type CanSensorReader struct {
	events    <-chan canEvent
	clock     Clock
	reading   CanReading
	lastFrame time.Time
}

func NewCanSensorReader(events <-chan canEvent, clock Clock) *CanSensorReader {
	return &CanSensorReader{
		events:    events,
		clock:     clock,
		lastFrame: clock.Now(),
	}
}

func (r *CanSensorReader) Poll() CanReading {
	for {
		select {
		case ev := <-r.events:
			r.lastFrame = r.clock.Now()
			if ev.reading != nil {
				r.reading = CanReading{
					HasData:        true,
					FuelLevel:      ev.reading.FuelLevel,
					InternalTemp:   ev.reading.InternalTemp,
					ExternalTemp:   ev.reading.ExternalTemp,
					ExternalStatus: ev.reading.ExternalStatus,
				}
			}
		default:
			return r.reading
		}
	}
}

// SilentFor reports how long the bus has been quiet as of now.
func (r *CanSensorReader) SilentFor(now time.Time) time.Duration {
	return now.Sub(r.lastFrame)
}

// ResetSilence restarts the quiet-time measurement, so a warning about a
// dead bus fires once per silent stretch instead of repeating.
func (r *CanSensorReader) ResetSilence(now time.Time) {
	r.lastFrame = now
}
