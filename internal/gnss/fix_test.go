package gnss

import (
	"testing"
	"time"
)

func TestParseRMCValidFix(t *testing.T) {
	// Classic NMEA RMC example sentence, 12:35:19 UTC on day 23 month 03.
	// The two-digit NMEA year is interpreted as 2000+yy (see parseRMCTime).
	line := "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	fix, ok, err := parseRMC(line)
	if err != nil {
		t.Fatalf("parseRMC: %v", err)
	}
	if !ok || !fix.Valid {
		t.Fatal("expected a valid fix")
	}
	want := time.Date(2094, time.March, 23, 12, 35, 19, 0, time.UTC)
	if !fix.UTC.Equal(want) {
		t.Fatalf("expected UTC %v, got %v", want, fix.UTC)
	}
	if fix.Lat < 48.11 || fix.Lat > 48.13 {
		t.Fatalf("unexpected latitude: %v", fix.Lat)
	}
	if fix.Lon < 11.5 || fix.Lon > 11.53 {
		t.Fatalf("unexpected longitude: %v", fix.Lon)
	}
}

func TestParseRMCVoidFixIgnored(t *testing.T) {
	line := "$GPRMC,123519,V,,,,,,,230394,,,N*53"
	_, ok, err := parseRMC(line)
	if err != nil {
		t.Fatalf("parseRMC: %v", err)
	}
	if ok {
		t.Fatal("expected void fix to be ignored")
	}
}

func TestParseRMCIgnoresOtherSentences(t *testing.T) {
	line := "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	_, ok, err := parseRMC(line)
	if err != nil {
		t.Fatalf("parseRMC: %v", err)
	}
	if ok {
		t.Fatal("expected non-RMC sentence to be skipped")
	}
}
