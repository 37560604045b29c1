// Package session maintains the running in-memory picture of today's
// activity: totals, the pending event log, and the flush/ack cycle that
// feeds the sync endpoint.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/daypulse-dev/daypulse/internal/domain"
	"github.com/daypulse-dev/daypulse/internal/observability"
	"github.com/daypulse-dev/daypulse/internal/presence"
)

// Defaults for the aggregation thresholds. Focus runs break on gaps longer
// than FocusGap and only qualify at MinFocusRun or above.
const (
	DefaultFocusGap       = 5 * time.Minute
	DefaultMinFocusRun    = 15 * time.Minute
	DefaultTopDomainLimit = 5
)

// Config tunes the store's aggregation behaviour. Zero values fall back to
// the defaults above.
type Config struct {
	AliveCredit    time.Duration // Seconds credited per alive report.
	FocusGap       time.Duration
	MinFocusRun    time.Duration
	TopDomainLimit int
}

func (c Config) withDefaults() Config {
	if c.AliveCredit <= 0 {
		c.AliveCredit = presence.ThrottleInterval
	}
	if c.FocusGap <= 0 {
		c.FocusGap = DefaultFocusGap
	}
	if c.MinFocusRun <= 0 {
		c.MinFocusRun = DefaultMinFocusRun
	}
	if c.TopDomainLimit <= 0 {
		c.TopDomainLimit = DefaultTopDomainLimit
	}
	return c
}

// Store is the single-writer owner of today's state. The detector and the
// status surface hold a reference to it; nothing else mutates the day.
type Store struct {
	mu  sync.Mutex
	cfg Config

	date          time.Time
	paused        bool
	focusDomain   string
	focusCategory domain.Category

	events       []domain.ActivityEvent
	pendingStart int // events before this index were acknowledged by the server

	totals      domain.CategoryTotals
	totalActive int
	switches    int
}

// NewStore constructs a Store for the calendar day containing now.
func NewStore(cfg Config, now time.Time) *Store {
	return &Store{
		cfg:  cfg.withDefaults(),
		date: domain.DayOf(now),
	}
}

// Date returns the start of the day the store is accumulating.
func (s *Store) Date() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date
}

// Pause stops alive reports from accruing time. The detector keeps running;
// only the accounting is gated.
func (s *Store) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume re-enables time accrual.
func (s *Store) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// Paused reports the pause flag.
func (s *Store) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// TogglePause flips the pause flag and returns the new value.
func (s *Store) TogglePause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = !s.paused
	return s.paused
}

// SetFocus records which (domain, category) pair is currently foregrounded.
// Subsequent alive reports credit this pair.
func (s *Store) SetFocus(d string, c domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focusDomain = d
	s.focusCategory = c
}

// ReportAlive implements presence.AliveReporter. One throttle interval of
// active time is credited to the focused pair. Paused sessions and sessions
// with no focus accept the report but accrue nothing.
func (s *Store) ReportAlive(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused || s.focusDomain == "" {
		return nil
	}

	s.recordLocked(s.focusDomain, s.focusCategory, int(s.cfg.AliveCredit.Seconds()), t)
	observability.RecordAliveReport()
	return nil
}

// RecordActivity appends a categorized slice of engaged time to the day.
func (s *Store) RecordActivity(d string, c domain.Category, seconds int, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLocked(d, c, seconds, t)
}

func (s *Store) recordLocked(d string, c domain.Category, seconds int, t time.Time) {
	if len(s.events) > 0 {
		last := s.events[len(s.events)-1]
		if last.Domain != d || last.Category != c {
			s.switches++
		}
	}

	s.events = append(s.events, domain.ActivityEvent{
		Domain:          d,
		Category:        c,
		DurationSeconds: seconds,
		OccurredAt:      t.UTC(),
	})
	s.totals.Add(c, seconds)
	s.totalActive += seconds
}

// Totals is the snapshot served to the status surface.
type Totals struct {
	Date               time.Time
	TotalActiveSeconds int
	CategoryTotals     domain.CategoryTotals
	ContextSwitchCount int
	EventCount         int
	Paused             bool
}

// Totals returns today's running totals.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Totals{
		Date:               s.date,
		TotalActiveSeconds: s.totalActive,
		CategoryTotals:     s.totals,
		ContextSwitchCount: s.switches,
		EventCount:         len(s.events),
		Paused:             s.paused,
	}
}

// Batch is an immutable flush snapshot suitable for transmission. Local state
// is untouched until Ack confirms the server recorded it.
type Batch struct {
	Summary  domain.DailySummary
	Events   []domain.ActivityEvent
	day      time.Time
	flushEnd int
}

// Flush assembles the complete day's summary plus the not-yet-acknowledged
// event batch. Summary totals always cover the whole day so that re-syncs
// stay idempotent on the server.
func (s *Store) Flush() Batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]domain.ActivityEvent, len(s.events)-s.pendingStart)
	copy(pending, s.events[s.pendingStart:])

	summary := domain.DailySummary{
		Date:               s.date,
		TotalActiveSeconds: s.totalActive,
		CategoryTotals:     s.totals,
		FocusWindow:        focusWindow(s.events, s.cfg.FocusGap, s.cfg.MinFocusRun),
		TopDomains:         topDomains(s.events, s.cfg.TopDomainLimit),
		ContextSwitchCount: s.switches,
	}

	return Batch{
		Summary:  summary,
		Events:   pending,
		day:      s.date,
		flushEnd: len(s.events),
	}
}

// Ack marks a flushed batch as durably recorded, releasing its events from
// the pending window. A failed sync simply never acks; the next flush resends.
// A batch flushed before StartNewDay indexes into an event log that no longer
// exists and is ignored.
func (s *Store) Ack(b Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !b.day.Equal(s.date) {
		return
	}
	if b.flushEnd > s.pendingStart {
		s.pendingStart = b.flushEnd
	}
}

// StartNewDay resets all accumulated state for the given day. The caller is
// expected to flush and sync the old day first.
func (s *Store) StartNewDay(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.date = domain.DayOf(now)
	s.events = nil
	s.pendingStart = 0
	s.totals = domain.CategoryTotals{}
	s.totalActive = 0
	s.switches = 0
}

// focusWindow finds the longest run of events whose consecutive timestamps
// are at most gap apart. The window spans from the first event's timestamp to
// the last event's timestamp plus its duration; runs shorter than minRun do
// not qualify.
func focusWindow(events []domain.ActivityEvent, gap, minRun time.Duration) *domain.FocusWindow {
	if len(events) == 0 {
		return nil
	}

	var best *domain.FocusWindow
	bestLen := time.Duration(0)

	runStart := 0
	for i := 1; i <= len(events); i++ {
		if i < len(events) && events[i].OccurredAt.Sub(events[i-1].OccurredAt) <= gap {
			continue
		}

		first := events[runStart]
		last := events[i-1]
		end := last.OccurredAt.Add(time.Duration(last.DurationSeconds) * time.Second)
		if length := end.Sub(first.OccurredAt); length >= minRun && length > bestLen {
			best = &domain.FocusWindow{Start: first.OccurredAt, End: end}
			bestLen = length
		}
		runStart = i
	}

	return best
}

// topDomains ranks domains by total seconds, most time first, bounded at limit.
func topDomains(events []domain.ActivityEvent, limit int) []domain.DomainTotal {
	if len(events) == 0 {
		return nil
	}

	seconds := make(map[string]int)
	for _, ev := range events {
		seconds[ev.Domain] += ev.DurationSeconds
	}

	ranked := make([]domain.DomainTotal, 0, len(seconds))
	for d, s := range seconds {
		ranked = append(ranked, domain.DomainTotal{Domain: d, Seconds: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Seconds != ranked[j].Seconds {
			return ranked[i].Seconds > ranked[j].Seconds
		}
		return ranked[i].Domain < ranked[j].Domain
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
