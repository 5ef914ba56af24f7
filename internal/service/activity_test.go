package service

import (
	"testing"
	"time"

	"sc2-ladder-tracker/internal/config"
	"sc2-ladder-tracker/internal/constants"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testClassifier(t *testing.T, now time.Time) *ActivityClassifier {
	t.Helper()
	loc, err := time.LoadLocation(constants.DefaultTimeZone)
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	cfg := &config.Config{
		OnlineThreshold: 30 * time.Minute,
		RecentThreshold: 24 * time.Hour,
		Location:        loc,
	}
	return NewActivityClassifier(cfg, zerolog.Nop()).WithClock(func() time.Time { return now })
}

func TestClassifyThresholds(t *testing.T) {
	now := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	c := testClassifier(t, now)

	tests := []struct {
		name       string
		lastPlayed string
		want       ActivityStatus
	}{
		{"just now", now.Format(time.RFC3339), StatusOnline},
		{"exactly 30 minutes ago", now.Add(-30 * time.Minute).Format(time.RFC3339), StatusOnline},
		{"31 minutes ago", now.Add(-31 * time.Minute).Format(time.RFC3339), StatusRecent},
		{"exactly 24 hours ago", now.Add(-24 * time.Hour).Format(time.RFC3339), StatusRecent},
		{"25 hours ago", now.Add(-25 * time.Hour).Format(time.RFC3339), StatusInactive},
		{"missing", "", StatusUnknown},
		{"garbage", "not-a-timestamp", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.lastPlayed))
		})
	}
}

func TestOnlineBoundary(t *testing.T) {
	now := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	c := testClassifier(t, now)

	assert.True(t, c.Online(now.Add(-30*time.Minute).Format(time.RFC3339)))
	assert.False(t, c.Online(now.Add(-31*time.Minute).Format(time.RFC3339)))
}

func TestFormatLastPlayedSameDay(t *testing.T) {
	// 18:00 UTC on Jan 15 is 13:00 in America/New_York, same calendar day
	// as a game played at 10:00 local
	now := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	c := testClassifier(t, now)

	played := time.Date(2024, 1, 15, 15, 4, 0, 0, time.UTC) // 10:04 AM local
	assert.Equal(t, "10:04 AM", c.FormatLastPlayed(played.Format(time.RFC3339)))
}

func TestFormatLastPlayedDaysAgo(t *testing.T) {
	now := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	c := testClassifier(t, now)

	played := now.Add(-49 * time.Hour)
	assert.Equal(t, "2d ago", c.FormatLastPlayed(played.Format(time.RFC3339)))
}

func TestFormatLastPlayedLateYesterday(t *testing.T) {
	// 18:00 UTC on Jan 15 is 13:00 in America/New_York; a game at 04:50 UTC
	// the same UTC day was 23:50 local on Jan 14, under 14 hours earlier
	now := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	c := testClassifier(t, now)

	played := time.Date(2024, 1, 15, 4, 50, 0, 0, time.UTC)
	assert.Equal(t, "1d ago", c.FormatLastPlayed(played.Format(time.RFC3339)))
}

func TestFormatLastPlayedUnparseable(t *testing.T) {
	c := testClassifier(t, time.Now())

	assert.Equal(t, "-", c.FormatLastPlayed(""))
	assert.Equal(t, "-", c.FormatLastPlayed("yesterday-ish"))
}
