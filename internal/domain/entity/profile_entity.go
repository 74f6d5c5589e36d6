package entity

import (
	"strings"
	"time"
)

// TimestampLayout matches the ISO-8601 form browsers produce with toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Profile is one person's networking identity.
// The same shape is used for "my profile" and for scanned contacts; only
// contacts carry ScannedAt.
//
// Timestamps are kept as strings so a scanned payload is stored verbatim.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Company   string `json:"company"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
	ScannedAt string `json:"scannedAt,omitempty"`
}

// ActivityTime is the moment used for recency ordering: ScannedAt when
// present, CreatedAt otherwise. Unparseable values yield the zero time.
func (p Profile) ActivityTime() time.Time {
	ts := p.ScannedAt
	if ts == "" {
		ts = p.CreatedAt
	}
	t, _ := ParseTimestamp(ts)
	return t
}

// SameEmail reports whether both profiles share an email, ignoring case.
func (p Profile) SameEmail(other Profile) bool {
	return strings.EqualFold(p.Email, other.Email)
}

// NetworkingStats aggregates the contact list.
type NetworkingStats struct {
	TotalContacts        int `json:"totalContacts"`
	RecentScans          int `json:"recentScans"`
	CompaniesRepresented int `json:"companiesRepresented"`
}

// SortCriterion selects the presentation order of a contact list.
type SortCriterion string

const (
	SortByName    SortCriterion = "name"
	SortByCompany SortCriterion = "company"
	SortByDate    SortCriterion = "date"
)

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts any RFC 3339 timestamp, with or without fractions.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}
