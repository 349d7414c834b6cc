// Package gnss implements GNSS time discipline for boards that carry a
// GPS/u-blox module: reading position/time fixes over a local tty or a
// gpsd daemon, and translating UTC instants into concentrator counts for
// TX_MODE_ON_GPS downlinks (spec.md §4.4 step 2).
package gnss

import "fmt"

// Source identifies where GNSS fixes come from.
type Source int

const (
	// SourceNone disables GNSS discipline entirely.
	SourceNone Source = iota
	// SourceTTY reads NMEA sentences directly off a serial device.
	SourceTTY
	// SourceGpsd reads TPV reports from a gpsd daemon over TCP.
	SourceGpsd
)

// Config selects and configures a GNSS source.
type Config struct {
	Source Source
	// TTYPath is the serial device path, used when Source == SourceTTY.
	TTYPath string
	// GpsdAddr is the host:port of the gpsd daemon, used when
	// Source == SourceGpsd (ChirpStack Concentratord defaults to
	// localhost:2947).
	GpsdAddr string
}

func (c Config) String() string {
	switch c.Source {
	case SourceTTY:
		return fmt.Sprintf("tty:%s", c.TTYPath)
	case SourceGpsd:
		return fmt.Sprintf("gpsd:%s", c.GpsdAddr)
	default:
		return "none"
	}
}
