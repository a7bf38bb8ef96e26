package tiltrig

import (
	"strconv"
	"time"

	"github.com/jd3nn1s/tiltrig/levelcan"
)

const (
	minUsablePitch = -25.0
	maxUsablePitch = 25.0

	noDataLabel = "No Data"
)

// Record label vocabulary for the MovementDirection column.
const (
	DirectionNone        = "None"
	DirectionUp          = "Up"
	DirectionDown        = "Down"
	DirectionStabilizing = "Stabilizing"
	DirectionZero        = "Zero"
)

// PitchSample is one inclinometer poll result. Samples are never cached;
// a poll without a decodable frame is simply invalid.
type PitchSample struct {
	Degrees float64
	Valid   bool
}

// Usable reports whether the sample decoded cleanly and lies inside the
// mechanical range of the platform. Values outside it mean a corrupt or
// misaligned frame, not a real attitude.
func (s PitchSample) Usable() bool {
	return s.Valid && s.Degrees >= minUsablePitch && s.Degrees <= maxUsablePitch
}

// CanReading is the cached state of the fuel sender module. HasData stays
// false until the first complete frame arrives, at which point all three
// channels are considered populated together.
type CanReading struct {
	HasData        bool
	FuelLevel      uint16
	InternalTemp   uint16
	ExternalTemp   uint16
	ExternalStatus levelcan.ExternalStatus
}

// ExternalValid reports whether the external temperature word is a
// measurement rather than a fault code.
func (r CanReading) ExternalValid() bool {
	return r.HasData && r.ExternalStatus == levelcan.ExternalOK
}

func (r CanReading) FuelLabel() string {
	if !r.HasData {
		return noDataLabel
	}
	return strconv.FormatUint(uint64(r.FuelLevel), 10)
}

func (r CanReading) InternalTempLabel() string {
	if !r.HasData {
		return noDataLabel
	}
	return strconv.FormatUint(uint64(r.InternalTemp), 10)
}

func (r CanReading) ExternalTempLabel() string {
	if !r.HasData {
		return noDataLabel
	}
	if r.ExternalStatus != levelcan.ExternalOK {
		return r.ExternalStatus.String()
	}
	return strconv.FormatUint(uint64(r.ExternalTemp), 10)
}

// Record is one fused sample of everything the rig knows, emitted on the
// data tick during a test run.
type Record struct {
	Elapsed   time.Duration
	Pitch     float64
	Can       CanReading
	Phase     string
	Direction string
}
