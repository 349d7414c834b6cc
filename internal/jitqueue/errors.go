package jitqueue

import "fmt"

// Admission failures (spec.md §4.4, §7).
var (
	ErrTooEarly  = fmt.Errorf("jitqueue: start_time is within MIN_LEAD of now")
	ErrTooLate   = fmt.Errorf("jitqueue: start_time is beyond MAX_LEAD of now")
	ErrCollision = fmt.Errorf("jitqueue: overlaps an already-queued item")
	ErrNoGPS     = fmt.Errorf("jitqueue: TX_MODE_ON_GPS requires a GNSS time converter")
)
