package regulation

import "time"

// Band is a regulatory frequency range with its own duty-cycle and power
// limits (spec.md §3). Frequencies are inclusive on both ends.
type Band struct {
	Label                string
	FrequencyMin         uint32
	FrequencyMax         uint32
	DutyCyclePermilleMax uint16 // 0..1000
	TxPowerMaxEIRP       int8   // dBm
}

func (b Band) covers(freqHz uint32) bool {
	return freqHz >= b.FrequencyMin && freqHz <= b.FrequencyMax
}

// Config is the ordered list of regulatory bands plus the sliding window
// length every band's duty-cycle cap is measured over (spec.md §3).
type Config struct {
	Bands []Band
	// WindowTime is the sliding window length (e.g. 1 hour) over which
	// DutyCyclePermilleMax is enforced.
	WindowTime time.Duration
	// AggregationGuard is the gap below which two consecutive
	// reservations in the same band are coalesced into a single span
	// for occupancy accounting, to avoid double-counting the guard time
	// between back-to-back transmissions (spec.md §4.3, §9 "Open
	// question — aggregation semantics"). Coalescing uses the span from
	// the first reservation's start to the last one's end, which is
	// always >= the sum of their airtimes, so it can only raise the
	// apparent load, never relax the cap.
	AggregationGuard time.Duration
}

// RegionEU868 is a Go re-expression of the ETSI EN 300 220 band table
// used by ChirpStack Concentratord's default EU868 regulation
// (original_source/libconcentratord/src/regulation/standard/etsi_en_300_220.rs),
// with antenna-independent EIRP limits (license-exempt SRD860 band plan).
func RegionEU868() Config {
	return Config{
		WindowTime:       time.Hour,
		AggregationGuard: time.Millisecond,
		Bands: []Band{
			{Label: "K", FrequencyMin: 863000000, FrequencyMax: 865000000, DutyCyclePermilleMax: 1, TxPowerMaxEIRP: 16},
			{Label: "L", FrequencyMin: 865000000, FrequencyMax: 868000000, DutyCyclePermilleMax: 10, TxPowerMaxEIRP: 16},
			{Label: "M", FrequencyMin: 868000000, FrequencyMax: 868600000, DutyCyclePermilleMax: 10, TxPowerMaxEIRP: 16},
			{Label: "N", FrequencyMin: 868700000, FrequencyMax: 869200000, DutyCyclePermilleMax: 1, TxPowerMaxEIRP: 16},
			{Label: "P", FrequencyMin: 869400000, FrequencyMax: 869650000, DutyCyclePermilleMax: 100, TxPowerMaxEIRP: 29},
			{Label: "P", FrequencyMin: 869700000, FrequencyMax: 870000000, DutyCyclePermilleMax: 1000, TxPowerMaxEIRP: 9},
			{Label: "Q", FrequencyMin: 869700000, FrequencyMax: 870000000, DutyCyclePermilleMax: 10, TxPowerMaxEIRP: 16},
		},
	}
}

// RegionUS915 models the FCC Part 15.247 frequency-hopping plan: no duty
// cycle cap, a single wide channel group, power limited by the usual
// +30 dBm conducted / antenna-gain budget used in LoRaWAN US915 gateways.
func RegionUS915() Config {
	return Config{
		WindowTime:       time.Hour,
		AggregationGuard: time.Millisecond,
		Bands: []Band{
			{Label: "US915", FrequencyMin: 902000000, FrequencyMax: 928000000, DutyCyclePermilleMax: 1000, TxPowerMaxEIRP: 30},
		},
	}
}
