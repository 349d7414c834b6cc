package gnss

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// GpsdReader speaks gpsd's JSON-lines protocol (the ?WATCH handshake
// documented in gpsd(8)), grounded on the VERSION/WATCH/DEVICES exchange
// used to bring up a u-blox receiver over gpsd. Unlike the Rust original,
// which additionally special-cases a u-blox NAV-TIMEGPS config write, this
// reader only consumes TPV reports; the config write is an optional
// receiver tuning step, not a time-discipline requirement.
type GpsdReader struct {
	conn net.Conn
	scan *bufio.Scanner
}

type gpsdTPV struct {
	Class string  `json:"class"`
	Mode  int     `json:"mode"`
	Time  string  `json:"time"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// DialGpsd connects to a gpsd daemon at addr and enables streaming JSON
// reports (TPV among them); NMEA passthrough is not requested.
func DialGpsd(addr string) (*GpsdReader, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("gnss: dialing gpsd at %s: %w", addr, err)
	}

	r := &GpsdReader{conn: conn, scan: bufio.NewScanner(conn)}

	// VERSION greeting, sent unsolicited on connect.
	if !r.scan.Scan() {
		conn.Close()
		return nil, fmt.Errorf("gnss: gpsd closed before VERSION: %w", r.scan.Err())
	}

	if _, err := fmt.Fprintf(conn, "?WATCH={\"enable\":true,\"json\":true};\r\n"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("gnss: sending WATCH to gpsd: %w", err)
	}

	// DEVICES and WATCH acknowledgements.
	if !r.scan.Scan() {
		conn.Close()
		return nil, fmt.Errorf("gnss: gpsd closed before DEVICES ack: %w", r.scan.Err())
	}
	if !r.scan.Scan() {
		conn.Close()
		return nil, fmt.Errorf("gnss: gpsd closed before WATCH ack: %w", r.scan.Err())
	}

	return r, nil
}

func (r *GpsdReader) NextFix() (Fix, bool, error) {
	if !r.scan.Scan() {
		if err := r.scan.Err(); err != nil {
			return Fix{}, false, fmt.Errorf("gnss: gpsd read: %w", err)
		}
		return Fix{}, false, fmt.Errorf("gnss: gpsd connection closed")
	}

	var tpv gpsdTPV
	if err := json.Unmarshal(r.scan.Bytes(), &tpv); err != nil {
		return Fix{}, false, nil // not a TPV-shaped line; skip it
	}
	if tpv.Class != "TPV" || tpv.Mode < 2 {
		return Fix{}, false, nil
	}

	t, err := time.Parse(time.RFC3339Nano, tpv.Time)
	if err != nil {
		return Fix{}, false, fmt.Errorf("gnss: parsing gpsd TPV time %q: %w", tpv.Time, err)
	}

	return Fix{UTC: t.UTC(), Lat: tpv.Lat, Lon: tpv.Lon, Valid: true}, true, nil
}

func (r *GpsdReader) Close() error { return r.conn.Close() }
