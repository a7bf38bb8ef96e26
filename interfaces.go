package tiltrig

import (
	"context"

	"github.com/jd3nn1s/tiltrig/levelcan"
	"github.com/jd3nn1s/tiltrig/wt901"
)

type Inclinometer interface {
	Close() error
	Start(context.Context, wt901.Callbacks) error
}

type LevelCAN interface {
	Close() error
	Start(context.Context, levelcan.Callbacks) error
}

// Forwarder receives every emitted record. Implementations must not
// block; a slow downstream drops records rather than stalling the
// control loop.
type Forwarder interface {
	Forward(*Record) error
}
