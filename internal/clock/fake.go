package clock

import "time"

// FakeClock is a manually advanced Clock for tests. Billing math and
// token expiry both key off Now, so fixtures pin it to a known instant.
type FakeClock struct {
	now time.Time
}

// NewFakeClock pins the clock to t, normalized to UTC.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d. Not safe for concurrent use.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
