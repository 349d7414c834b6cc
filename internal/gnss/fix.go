package gnss

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Fix is a single GNSS time/position report.
type Fix struct {
	UTC   time.Time
	Lat   float64
	Lon   float64
	Valid bool
}

// Reader produces GNSS fixes from whatever transport backs it.
type Reader interface {
	// NextFix blocks until a fix is available (or the read fails) and
	// returns it. Returns (Fix{}, false, nil) for a parsed-but-unusable
	// line (e.g. a sentence type this reader doesn't act on).
	NextFix() (Fix, bool, error)
	Close() error
}

// parseRMC extracts UTC time and position from a $--RMC NMEA sentence, the
// minimal fix needed for time discipline. Returns ok=false for any other
// sentence type or a sentence without a valid fix.
func parseRMC(line string) (Fix, bool, error) {
	line = strings.TrimSpace(line)
	if len(line) < 6 || !strings.HasPrefix(line, "$") || !strings.HasSuffix(line[:6], "RMC") {
		return Fix{}, false, nil
	}
	if idx := strings.IndexByte(line, '*'); idx >= 0 {
		line = line[:idx]
	}
	fields := strings.Split(line, ",")
	if len(fields) < 10 {
		return Fix{}, false, fmt.Errorf("gnss: short RMC sentence: %q", line)
	}

	// fields: 0=$xxRMC 1=time(hhmmss.ss) 2=status(A/V) 3=lat 4=N/S
	// 5=lon 6=E/W 7=speed 8=course 9=date(ddmmyy)
	if fields[2] != "A" {
		return Fix{}, false, nil // no fix
	}

	t, err := parseRMCTime(fields[1], fields[9])
	if err != nil {
		return Fix{}, false, err
	}
	lat, err := parseNMEACoord(fields[3], fields[4])
	if err != nil {
		return Fix{}, false, err
	}
	lon, err := parseNMEACoord(fields[5], fields[6])
	if err != nil {
		return Fix{}, false, err
	}

	return Fix{UTC: t, Lat: lat, Lon: lon, Valid: true}, true, nil
}

func parseRMCTime(hhmmss, ddmmyy string) (time.Time, error) {
	if len(hhmmss) < 6 || len(ddmmyy) != 6 {
		return time.Time{}, fmt.Errorf("gnss: malformed RMC time/date fields")
	}
	hour, err := strconv.Atoi(hhmmss[0:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("gnss: parsing RMC hour: %w", err)
	}
	minute, err := strconv.Atoi(hhmmss[2:4])
	if err != nil {
		return time.Time{}, fmt.Errorf("gnss: parsing RMC minute: %w", err)
	}
	secFloat, err := strconv.ParseFloat(hhmmss[4:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("gnss: parsing RMC seconds: %w", err)
	}
	day, err := strconv.Atoi(ddmmyy[0:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("gnss: parsing RMC day: %w", err)
	}
	month, err := strconv.Atoi(ddmmyy[2:4])
	if err != nil {
		return time.Time{}, fmt.Errorf("gnss: parsing RMC month: %w", err)
	}
	year, err := strconv.Atoi(ddmmyy[4:6])
	if err != nil {
		return time.Time{}, fmt.Errorf("gnss: parsing RMC year: %w", err)
	}

	sec := int(secFloat)
	nsec := int((secFloat - float64(sec)) * 1e9)
	return time.Date(2000+year, time.Month(month), day, hour, minute, sec, nsec, time.UTC), nil
}

func parseNMEACoord(raw, hemisphere string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("gnss: empty coordinate field")
	}
	dotIdx := strings.IndexByte(raw, '.')
	if dotIdx < 2 {
		return 0, fmt.Errorf("gnss: malformed coordinate %q", raw)
	}
	degWidth := dotIdx - 2
	deg, err := strconv.ParseFloat(raw[:degWidth], 64)
	if err != nil {
		return 0, err
	}
	min, err := strconv.ParseFloat(raw[degWidth:], 64)
	if err != nil {
		return 0, err
	}
	val := deg + min/60
	if hemisphere == "S" || hemisphere == "W" {
		val = -val
	}
	return val, nil
}
