package tiltrig

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

var retrySleep = time.Second

// Retryable is a sensor transport that the rig keeps connected for as
// long as it runs.
type Retryable interface {
	Open() error
	Close() error
	Start(ctx context.Context) error
	Name() string
}

// retry opens r and runs it until it stops, then closes it, pauses and
// opens it again. It returns only once the context is cancelled.
func retry(ctx context.Context, r Retryable) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.Open(); err != nil {
			log.WithField("err", err).Warnf("%s: unable to open", r.Name())
			sleepRetry(ctx)
			continue
		}

		err := r.Start(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.WithField("err", err).Errorf("%s: reconnecting due to error", r.Name())
		} else {
			log.Warnf("%s: stopped, reconnecting", r.Name())
		}
		if err := r.Close(); err != nil {
			log.WithField("err", err).Warnf("%s: unable to close", r.Name())
		}
		sleepRetry(ctx)
	}
}

func sleepRetry(ctx context.Context) {
	if retrySleep <= 0 {
		return
	}
	t := time.NewTimer(retrySleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
