package regulation

import "fmt"

// Error kinds surfaced by the regulation engine (spec.md §7).
var (
	ErrDutyCycle            = fmt.Errorf("regulation: item exceeds duty cycle")
	ErrDutyCycleFutureItems = fmt.Errorf("regulation: item would exceed duty cycle once later-starting reservations are accounted for")
)

// BandNotFoundError reports that no configured band covers freqHz at
// powerEIRP dBm.
type BandNotFoundError struct {
	FreqHz    uint32
	PowerEIRP int8
}

func (e *BandNotFoundError) Error() string {
	return fmt.Sprintf("regulation: no band for freq=%d power_eirp=%d", e.FreqHz, e.PowerEIRP)
}
