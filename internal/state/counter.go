package state

import "time"

// DailyCounter counts participations per local calendar day and refuses to
// go past its maximum. It resets when the date changes. Only the poll
// loop touches it, so it is not safe for concurrent use.
type DailyCounter struct {
	max int
	now func() time.Time

	day   string
	count int
}

// NewDailyCounter creates a counter with the given daily maximum. now
// defaults to time.Now.
func NewDailyCounter(limit int, now func() time.Time) *DailyCounter {
	if now == nil {
		now = time.Now
	}
	return &DailyCounter{
		max: limit,
		now: now,
		day: now().Format(time.DateOnly),
	}
}

// Max returns the daily maximum.
func (c *DailyCounter) Max() int {
	return c.max
}

// Count returns today's count.
func (c *DailyCounter) Count() int {
	c.rollover()
	return c.count
}

// Remaining returns how many participations are left today.
func (c *DailyCounter) Remaining() int {
	c.rollover()
	return c.max - c.count
}

// Take consumes one unit of today's quota. It returns false without
// counting when the quota is exhausted.
func (c *DailyCounter) Take() bool {
	c.rollover()
	if c.count >= c.max {
		return false
	}
	c.count++
	return true
}

// ResetIfNewDay resets the count when the date has changed and reports
// whether it did.
func (c *DailyCounter) ResetIfNewDay() bool {
	return c.rollover()
}

// UntilReset returns the time left until the next local midnight.
func (c *DailyCounter) UntilReset() time.Duration {
	now := c.now()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	return midnight.Sub(now)
}

func (c *DailyCounter) rollover() bool {
	today := c.now().Format(time.DateOnly)
	if today == c.day {
		return false
	}
	c.day = today
	c.count = 0
	return true
}
