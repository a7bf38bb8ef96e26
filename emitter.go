package tiltrig

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// emitInterval is the data tick: at most one record per interval.
	emitInterval = 10 * time.Millisecond

	statusLogInterval = time.Second

	csvHeader = "TimeMS,FuelLevel,InternalTemp,ExternalTemp,Pitch,Phase,MovementDirection"
)

// RecordEmitter paces the record stream. Each due tick it polls both
// sensor readers, fuses a record and writes the CSV row, fanning a copy
// out to any registered forwarders.
//
// A tick whose pitch sample is unusable is consumed without a row, so a
// sensor dropout thins the stream instead of delaying it.
type RecordEmitter struct {
	w          io.Writer
	clock      Clock
	pitch      *InclinometerReader
	can        *CanSensorReader
	forwarders []Forwarder

	start          time.Time
	lastTick       time.Time
	headerWritten  bool
	lastStatusTime time.Time
}

func NewRecordEmitter(w io.Writer, clock Clock, pitch *InclinometerReader, can *CanSensorReader) *RecordEmitter {
	now := clock.Now()
	return &RecordEmitter{
		w:              w,
		clock:          clock,
		pitch:          pitch,
		can:            can,
		start:          now,
		lastTick:       now,
		lastStatusTime: now,
	}
}

func (e *RecordEmitter) AddForwarder(f Forwarder) {
	e.forwarders = append(e.forwarders, f)
}

// BeginRun restarts the elapsed-time origin and re-arms the header for a
// fresh CSV stream.
func (e *RecordEmitter) BeginRun(now time.Time) {
	e.start = now
	e.lastTick = now
	e.lastStatusTime = now
	e.headerWritten = false
}

// WriteHeader emits the column header. At most one header is written per
// run.
func (e *RecordEmitter) WriteHeader() {
	if e.headerWritten {
		return
	}
	if _, err := fmt.Fprintln(e.w, csvHeader); err != nil {
		log.WithField("err", err).Warn("unable to write record header")
	}
	e.headerWritten = true
}

// EmitIfDue writes one record if a data tick has elapsed, labelled with
// the current phase and movement direction. It reports whether a row was
// written.
func (e *RecordEmitter) EmitIfDue(phase, direction string) bool {
	now := e.clock.Now()
	if now.Sub(e.lastTick) < emitInterval {
		return false
	}
	e.lastTick = now

	sample := e.pitch.Poll()
	reading := e.can.Poll()
	if !sample.Usable() {
		return false
	}

	rec := Record{
		Elapsed:   now.Sub(e.start),
		Pitch:     sample.Degrees,
		Can:       reading,
		Phase:     phase,
		Direction: direction,
	}
	e.write(&rec)

	for _, f := range e.forwarders {
		if err := f.Forward(&rec); err != nil {
			log.WithField("err", err).Warn("unable to forward record")
		}
	}

	e.logStatus(now, &rec)
	return true
}

func (e *RecordEmitter) write(rec *Record) {
	_, err := fmt.Fprintf(e.w, "%d,%s,%s,%s,%.2f,%s,%s\n",
		rec.Elapsed.Milliseconds(),
		rec.Can.FuelLabel(),
		rec.Can.InternalTempLabel(),
		rec.Can.ExternalTempLabel(),
		rec.Pitch,
		rec.Phase,
		rec.Direction)
	if err != nil {
		log.WithField("err", err).Warn("unable to write record")
	}
}

func (e *RecordEmitter) logStatus(now time.Time, rec *Record) {
	if now.Sub(e.lastStatusTime) < statusLogInterval {
		return
	}
	e.lastStatusTime = now
	log.WithField("elapsed", rec.Elapsed.Truncate(time.Millisecond)).
		WithField("pitch", fmt.Sprintf("%.2f", rec.Pitch)).
		WithField("fuel", rec.Can.FuelLabel()).
		WithField("internalTemp", rec.Can.InternalTempLabel()).
		WithField("phase", rec.Phase).
		WithField("direction", rec.Direction).
		Debug("rig status")
}
