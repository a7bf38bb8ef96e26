package tiltrig

import (
	"context"

	"github.com/jd3nn1s/tiltrig/wt901"
	log "github.com/sirupsen/logrus"
)

type inclinometerPump struct {
	c        Inclinometer
	port     string
	baudRate uint
	sendChan chan<- []byte
}

var inclinometerConnect = func(port string, baudRate uint) (Inclinometer, error) {
	return wt901.Connect(port, baudRate)
}

func (p *inclinometerPump) Open() error {
	c, err := inclinometerConnect(p.port, p.baudRate)
	p.c = c
	return err
}

func (p *inclinometerPump) Close() error {
	if p.c == nil {
		return nil
	}
	return p.c.Close()
}

func (p *inclinometerPump) Start(ctx context.Context) error {
	return p.c.Start(ctx, wt901.Callbacks{
		Data: func(chunk []byte) {
			select {
			case p.sendChan <- chunk:
			default:
			}
		},
	})
}

func (p *inclinometerPump) Name() string {
	return "inclinometer"
}

func runInclinometer(ctx context.Context, port string, baudRate uint, sendChan chan<- []byte) {
	err := retry(ctx, &inclinometerPump{
		port:     port,
		baudRate: baudRate,
		sendChan: sendChan,
	})
	if err != nil {
		log.Errorf("inclinometer done: %v", err)
	}
}

// InclinometerReader turns the pumped byte stream into pitch samples.
// Poll never blocks and never caches: a call without a fresh decodable
// frame reports an invalid sample.
type InclinometerReader struct {
	bytes  <-chan []byte
	parser wt901.Parser
}

func NewInclinometerReader(bytes <-chan []byte) *InclinometerReader {
	return &InclinometerReader{
		bytes: bytes,
	}
}

// Poll drains everything the transport has delivered and decodes through
// it, returning the freshest angle frame. Partial frames stay buffered
// for the next poll.
func (r *InclinometerReader) Poll() PitchSample {
	for {
		select {
		case chunk := <-r.bytes:
			r.parser.Feed(chunk)
			continue
		default:
		}
		break
	}

	sample := PitchSample{}
	for {
		deg, ok := r.parser.Next()
		if ok {
			sample = PitchSample{Degrees: deg, Valid: true}
			continue
		}
		if r.parser.Buffered() < wt901.FrameSize {
			break
		}
	}
	return sample
}
