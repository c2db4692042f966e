package chart

import (
	"math"
	"time"

	"chartkit/internal/domain"

	"github.com/aclements/go-moremath/scale"
)

// valueTicks places at most max major ticks inside d. The domain itself
// is never widened to round numbers.
func (p *Projector) valueTicks(d domain.Domain, kind domain.ScaleKind) []domain.Tick {
	opts := scale.TickOptions{Max: p.maxTicks()}

	var major []float64
	switch kind {
	case domain.ScaleLog:
		s, err := scale.NewLog(d.Min, d.Max, 10)
		if err != nil {
			return nil
		}
		major, _ = s.Ticks(opts)
	default:
		major, _ = scale.Linear{Min: d.Min, Max: d.Max}.Ticks(opts)
	}

	step := 1.0
	if len(major) > 1 {
		step = major[1] - major[0]
	}
	ticks := make([]domain.Tick, 0, len(major))
	for _, v := range major {
		// Log ticks span decades, so each label gets its own precision.
		precision := step
		if kind == domain.ScaleLog {
			precision = v
		}
		ticks = append(ticks, domain.Tick{Value: v, Label: p.labels.Number(v, decimalsFor(precision))})
	}
	return ticks
}

// timeStep is one candidate spacing for a calendar axis.
type timeStep struct {
	years, months, days int
	layout             string
}

var timeSteps = []timeStep{
	{days: 1, layout: "Jan 2"},
	{days: 7, layout: "Jan 2"},
	{months: 1, layout: "Jan 2006"},
	{months: 3, layout: "Jan 2006"},
	{months: 6, layout: "Jan 2006"},
	{years: 1, layout: "2006"},
	{years: 2, layout: "2006"},
	{years: 5, layout: "2006"},
	{years: 10, layout: "2006"},
	{years: 25, layout: "2006"},
	{years: 50, layout: "2006"},
	{years: 100, layout: "2006"},
}

// timeTicks picks the finest calendar step that yields at most max ticks
// within d and labels each tick in the configured locale.
func (p *Projector) timeTicks(d domain.TimeDomain) []domain.TimeTick {
	limit := p.maxTicks()
	for _, step := range timeSteps {
		at := calendarTicks(d, step, limit)
		if at == nil {
			continue
		}
		ticks := make([]domain.TimeTick, len(at))
		for i, t := range at {
			ticks[i] = domain.TimeTick{At: t, Label: p.labels.Date(t, step.layout)}
		}
		return ticks
	}
	return nil
}

// calendarTicks returns the aligned ticks of step inside d, or nil when
// there would be more than limit of them.
func calendarTicks(d domain.TimeDomain, step timeStep, limit int) []time.Time {
	loc := d.Min.Location()
	var t time.Time
	switch {
	case step.years > 0:
		y := d.Min.Year()
		y = int(math.Ceil(float64(y)/float64(step.years))) * step.years
		t = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		if t.Before(d.Min) {
			t = t.AddDate(step.years, 0, 0)
		}
	case step.months > 0:
		m := int(d.Min.Month()) - 1
		m = int(math.Ceil(float64(m)/float64(step.months))) * step.months
		t = time.Date(d.Min.Year(), time.Month(m+1), 1, 0, 0, 0, 0, loc)
		if t.Before(d.Min) {
			t = t.AddDate(0, step.months, 0)
		}
	default:
		t = time.Date(d.Min.Year(), d.Min.Month(), d.Min.Day(), 0, 0, 0, 0, loc)
		if t.Before(d.Min) {
			t = t.AddDate(0, 0, 1)
		}
		if step.days == 7 {
			for t.Weekday() != time.Monday {
				t = t.AddDate(0, 0, 1)
			}
		}
	}

	var out []time.Time
	for ; !t.After(d.Max); t = t.AddDate(step.years, step.months, step.days) {
		out = append(out, t)
		if len(out) > limit {
			return nil
		}
	}
	if len(out) == 0 {
		return []time.Time{d.Min}
	}
	return out
}
