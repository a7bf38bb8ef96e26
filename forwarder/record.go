package forwarder

import (
	"github.com/jd3nn1s/tiltrig"
)

// Header precedes every datagram.
type Header struct {
	Type uint8
}

const TypeRecord = 1

// Record is the fixed-size wire form of a rig record. Labels collapse to
// enum ids so the datagram stays fixed width.
type Record struct {
	ElapsedMS    uint32
	Pitch        float32
	FuelLevel    uint16
	InternalTemp uint16
	ExternalTemp uint16
	ExternalOK   uint8
	HasCanData   uint8
	Phase        uint8
	Direction    uint8
}

// Unknown labels map to 0 so a receiver can tell a vocabulary mismatch
// from real data.
var phaseIDs = map[string]uint8{
	"AdjustingToPos5":  1,
	"Stationary1":      2,
	"AdjustingToNeg5":  3,
	"Stationary2":      4,
	"AdjustingToPos10": 5,
	"Stationary3":      6,
	"AdjustingToNeg10": 7,
	"Stationary4":      8,
	"ReturnToZero":     9,
	"Complete":         10,
}

var directionIDs = map[string]uint8{
	"None":        1,
	"Up":          2,
	"Down":        3,
	"Stabilizing": 4,
	"Zero":        5,
}

func Encode(rec *tiltrig.Record) Record {
	wire := Record{
		ElapsedMS:    uint32(rec.Elapsed.Milliseconds()),
		Pitch:        float32(rec.Pitch),
		FuelLevel:    rec.Can.FuelLevel,
		InternalTemp: rec.Can.InternalTemp,
		ExternalTemp: rec.Can.ExternalTemp,
		Phase:        phaseIDs[rec.Phase],
		Direction:    directionIDs[rec.Direction],
	}
	if rec.Can.ExternalValid() {
		wire.ExternalOK = 1
	}
	if rec.Can.HasData {
		wire.HasCanData = 1
	}
	return wire
}
