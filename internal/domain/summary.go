// Package domain defines the business logic for the daily-summary pipeline.
package domain

import "time"

// Category classifies what kind of work an activity represents. The set is
// fixed; the wire schema and CategoryTotals must be versioned together if it
// ever grows.
type Category string

const (
	CategoryCommunication Category = "communication"
	CategoryBuilding      Category = "building"
	CategoryResearch      Category = "research"
	CategoryMeetings      Category = "meetings"
	CategoryAdmin         Category = "admin"
)

// Categories lists every known category in a stable order.
var Categories = []Category{
	CategoryCommunication,
	CategoryBuilding,
	CategoryResearch,
	CategoryMeetings,
	CategoryAdmin,
}

// Valid reports whether the category is one of the fixed five.
func (c Category) Valid() bool {
	switch c {
	case CategoryCommunication, CategoryBuilding, CategoryResearch, CategoryMeetings, CategoryAdmin:
		return true
	}
	return false
}

// CategoryTotals holds per-category active seconds for a single day. Keys are
// fixed so the JSONB column round-trips the wire shape exactly.
type CategoryTotals struct {
	Communication int `json:"communication"`
	Building      int `json:"building"`
	Research      int `json:"research"`
	Meetings      int `json:"meetings"`
	Admin         int `json:"admin"`
}

// Add credits seconds to the matching category. Unknown categories are
// ignored rather than rejected; drift is an upstream data-quality concern.
func (t *CategoryTotals) Add(c Category, seconds int) {
	switch c {
	case CategoryCommunication:
		t.Communication += seconds
	case CategoryBuilding:
		t.Building += seconds
	case CategoryResearch:
		t.Research += seconds
	case CategoryMeetings:
		t.Meetings += seconds
	case CategoryAdmin:
		t.Admin += seconds
	}
}

// Sum returns the total seconds across all categories.
func (t CategoryTotals) Sum() int {
	return t.Communication + t.Building + t.Research + t.Meetings + t.Admin
}

// DomainTotal is one entry of the topDomains ranking, most time first.
type DomainTotal struct {
	Domain  string `json:"domain"`
	Seconds int    `json:"seconds"`
}

// FocusWindow is the largest contiguous high-engagement interval of a day.
type FocusWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ActivityEvent is a single categorized slice of engaged time on a domain.
// Events are ephemeral on the client and become activity_logs rows on sync.
type ActivityEvent struct {
	Domain          string
	Category        Category
	DurationSeconds int
	OccurredAt      time.Time
}

// DailySummary is the durable per-user, per-day aggregate. Exactly one row
// exists per (UserID, Date); Date is truncated to the start of its UTC day.
type DailySummary struct {
	ID                 string
	UserID             string
	Date               time.Time
	TotalActiveSeconds int
	CategoryTotals     CategoryTotals
	FocusWindow        *FocusWindow
	TopDomains         []DomainTotal
	ContextSwitchCount int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// User is the minimal identity record owning daily summaries. Users are
// provisioned lazily on first sync.
type User struct {
	ID    string
	Email string
}

// DayOf truncates a timestamp to the start of its UTC calendar day. Together
// with the user id this forms the sync idempotency key.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
