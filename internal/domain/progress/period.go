package progress

import (
	"time"

	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/domain/evaluation"
)

// DefaultPeriod runs from the first of today's month through today
func DefaultPeriod(today time.Time) entity.Period {
	end := evaluation.CivilDate(today)
	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	return entity.Period{Start: start, End: end}
}

// NormalizePeriod fills missing bounds from the default period and validates order
func NormalizePeriod(start, end *time.Time, today time.Time) (entity.Period, error) {
	p := DefaultPeriod(today)
	if start != nil {
		p.Start = evaluation.CivilDate(*start)
	}
	if end != nil {
		p.End = evaluation.CivilDate(*end)
	}
	if p.Start.After(p.End) {
		return entity.Period{}, entity.ErrInvalidPeriod
	}
	return p, nil
}

// Contains reports whether the civil date of t, taken in its own location, falls within p
func Contains(p entity.Period, t time.Time) bool {
	d := evaluation.CivilDate(t)
	return !d.Before(p.Start) && !d.After(p.End)
}
