package risk

import "sort"

// Event is a scheduled economic release that halts new entries around its
// release time (mirrors original_source's EconEvent).
type Event struct {
	Name        string
	ReleaseTS   int64 // microseconds since epoch
	PaddingMins float64
}

// Calendar holds the configured economic events for a session.
type Calendar struct {
	events []Event
}

// NewCalendar constructs a Calendar from events, sorted by release time.
func NewCalendar(events []Event) *Calendar {
	sorted := append([]Event(nil), events...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ReleaseTS < sorted[j].ReleaseTS })
	return &Calendar{events: sorted}
}

// Between returns every event whose release time falls within [fromTS, toTS].
func (c *Calendar) Between(fromTS, toTS int64) []Event {
	var out []Event
	for _, e := range c.events {
		if e.ReleaseTS >= fromTS && e.ReleaseTS <= toTS {
			out = append(out, e)
		}
	}
	return out
}

// HaltWindow is a [start, end] microsecond interval during which entries
// are blocked, built from an Event's release time ± padding.
type HaltWindow struct {
	Start int64
	End   int64
}

// BuildWindow derives the halt window for e: release_time +/- padding_minutes.
func BuildWindow(e Event) HaltWindow {
	paddingMicros := int64(e.PaddingMins * 60 * 1_000_000)
	return HaltWindow{Start: e.ReleaseTS - paddingMicros, End: e.ReleaseTS + paddingMicros}
}

// Scheduler answers "is now inside any configured halt window" queries,
// reproducing services/risk/scheduler.py's EconScheduler.
type Scheduler struct {
	calendar *Calendar
}

// NewScheduler constructs a Scheduler over calendar.
func NewScheduler(calendar *Calendar) *Scheduler {
	return &Scheduler{calendar: calendar}
}

// IsHalted reports whether now falls inside any event's halt window. It
// scans a day-wide neighborhood around now so padding windows that start
// before or end after a narrow query range are still found.
func (s *Scheduler) IsHalted(now int64) bool {
	const dayMicros = 24 * 60 * 60 * 1_000_000
	for _, e := range s.calendar.Between(now-dayMicros, now+dayMicros) {
		w := BuildWindow(e)
		if now >= w.Start && now <= w.End {
			return true
		}
	}
	return false
}

// MinutesToNext returns the minutes until the next scheduled event at or
// after now, or -1 if none remain.
func (s *Scheduler) MinutesToNext(now int64) float64 {
	for _, e := range s.calendar.events {
		if e.ReleaseTS >= now {
			return float64(e.ReleaseTS-now) / 60_000_000
		}
	}
	return -1
}
