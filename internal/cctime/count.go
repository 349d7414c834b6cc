// Package cctime implements the concentrator's 32-bit free-running
// microsecond counter and the modular arithmetic every scheduling
// decision in this daemon is built on.
package cctime

import "time"

// wrap is the point at which the hardware counter rolls over: 2^32
// microseconds, roughly 71.58 minutes.
const wrap = int64(1) << 32

// Count is a concentrator timestamp in microseconds. It wraps every
// ~71.58 minutes, so it must never be compared with plain subtraction.
type Count uint32

// Distance returns the forward distance from c to other, i.e. how long
// after c the instant other occurs, wrapping modulo 2^32. The result is
// always in [0, 2^32) microseconds.
func (c Count) Distance(other Count) time.Duration {
	d := (int64(other) - int64(c)) & (wrap - 1)
	return time.Duration(d) * time.Microsecond
}

// Before reports whether c occurs strictly before other, using the
// half-range rule: c is before other iff the forward distance from c to
// other is less than half the counter range.
func (c Count) Before(other Count) bool {
	d := (int64(other) - int64(c)) & (wrap - 1)
	return d != 0 && d < wrap/2
}

// After reports whether c occurs strictly after other.
func (c Count) After(other Count) bool {
	return other.Before(c)
}

// Add returns the count d later than c, wrapping as needed. d may be
// negative, e.g. to subtract a pre_delay from a scheduled count.
func (c Count) Add(d time.Duration) Count {
	us := d.Microseconds()
	return Count(uint32((int64(c) + us) & (wrap - 1)))
}

// Delta returns the signed duration from c to other: positive when other
// occurs after c, negative when other occurs before c, using the same
// half-range rule as Before/After. Unlike Distance, which is always
// non-negative, Delta is the natural choice when the caller needs to know
// which direction the gap runs, e.g. "how overdue is this item".
func (c Count) Delta(other Count) time.Duration {
	d := (int64(other) - int64(c)) & (wrap - 1)
	if d >= wrap/2 {
		d -= wrap
	}
	return time.Duration(d) * time.Microsecond
}

// Overlaps reports whether the half-open interval [start, end) intersects
// [otherStart, otherEnd) in modular counter space.
func Overlaps(start, end, otherStart, otherEnd Count) bool {
	return start.Before(otherEnd) && otherStart.Before(end)
}
