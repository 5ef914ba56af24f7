package service

import (
	"fmt"
	"time"

	"sc2-ladder-tracker/internal/config"

	"github.com/rs/zerolog"
)

// ActivityStatus classifies how recently a player was seen on the ladder.
type ActivityStatus string

const (
	StatusOnline   ActivityStatus = "online"
	StatusRecent   ActivityStatus = "recent"
	StatusInactive ActivityStatus = "inactive"
	StatusUnknown  ActivityStatus = "unknown"
)

// ActivityClassifier derives online status and a human-readable "last
// played" string from a last-played timestamp. All wall-clock comparisons
// happen in one fixed location so the result does not depend on the server's
// or the viewer's zone. Thresholds are inclusive: exactly at the boundary
// still counts.
type ActivityClassifier struct {
	onlineThreshold time.Duration
	recentThreshold time.Duration
	loc             *time.Location
	now             func() time.Time
}

func NewActivityClassifier(cfg *config.Config, logger zerolog.Logger) *ActivityClassifier {
	logger.Debug().
		Dur("online_threshold", cfg.OnlineThreshold).
		Dur("recent_threshold", cfg.RecentThreshold).
		Str("location", cfg.Location.String()).
		Msg("activity classifier configured")
	return &ActivityClassifier{
		onlineThreshold: cfg.OnlineThreshold,
		recentThreshold: cfg.RecentThreshold,
		loc:             cfg.Location,
		now:             time.Now,
	}
}

// WithClock returns a copy using the given clock. Test hook.
func (c *ActivityClassifier) WithClock(now func() time.Time) *ActivityClassifier {
	copied := *c
	copied.now = now
	return &copied
}

func (c *ActivityClassifier) parse(lastPlayed string) (time.Time, bool) {
	if lastPlayed == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, lastPlayed)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Classify maps a last-played ISO timestamp to an activity status. Parse
// failures degrade to StatusUnknown, never an error.
func (c *ActivityClassifier) Classify(lastPlayed string) ActivityStatus {
	t, ok := c.parse(lastPlayed)
	if !ok {
		return StatusUnknown
	}
	elapsed := c.now().Sub(t)
	switch {
	case elapsed <= c.onlineThreshold:
		return StatusOnline
	case elapsed <= c.recentThreshold:
		return StatusRecent
	default:
		return StatusInactive
	}
}

// Online reports whether the player counts as currently online.
func (c *ActivityClassifier) Online(lastPlayed string) bool {
	return c.Classify(lastPlayed) == StatusOnline
}

// FormatLastPlayed renders a display string: same calendar day in the
// reference zone gives "3:04 PM", older gives "2d ago", anything
// unparseable gives "-".
func (c *ActivityClassifier) FormatLastPlayed(lastPlayed string) string {
	t, ok := c.parse(lastPlayed)
	if !ok {
		return "-"
	}

	now := c.now().In(c.loc)
	local := t.In(c.loc)

	if local.Year() == now.Year() && local.YearDay() == now.YearDay() {
		return local.Format("3:04 PM")
	}

	// count calendar days in the reference zone, so late yesterday is
	// "1d ago" even when fewer than 24 hours have passed
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	localDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	days := int(nowDay.Sub(localDay).Round(24*time.Hour) / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("%dd ago", days)
}
