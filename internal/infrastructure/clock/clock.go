// Package clock resolves business dates in a fixed timezone.
package clock

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/opticorai/taskeval/internal/application/port"
)

// BusinessClock reports time in the organisation's timezone
type BusinessClock struct {
	loc *time.Location
	now func() time.Time
}

// New loads the IANA timezone name, e.g. "Asia/Kolkata"; empty means UTC
func New(timezone string) (*BusinessClock, error) {
	if timezone == "" {
		return &BusinessClock{loc: time.UTC, now: time.Now}, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	return &BusinessClock{loc: loc, now: time.Now}, nil
}

// Fixed returns a clock frozen at t, for tests and CLI previews
func Fixed(t time.Time) *BusinessClock {
	return &BusinessClock{loc: t.Location(), now: func() time.Time { return t }}
}

func (c *BusinessClock) Now() time.Time           { return c.now().In(c.loc) }
func (c *BusinessClock) Location() *time.Location { return c.loc }

// Today returns the business-local calendar date as midnight UTC
func (c *BusinessClock) Today() time.Time {
	y, m, d := c.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ port.Clock = (*BusinessClock)(nil)
