package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdayHours() map[time.Weekday]DayHours {
	hours := make(map[time.Weekday]DayHours)
	for d := time.Monday; d <= time.Friday; d++ {
		hours[d] = DayHours{Enabled: true, Start: "09:00", End: "17:00"}
	}
	hours[time.Saturday] = DayHours{Enabled: false}
	hours[time.Sunday] = DayHours{Enabled: false}
	return hours
}

func testConfig() Config {
	return Config{
		Location:           time.UTC,
		BufferMinutes:      10,
		AdvanceBookingDays: 30,
		MinNoticeHours:     0,
		BlockedDates:       map[string]struct{}{},
		Hours:              weekdayHours(),
	}
}

func TestIsBookable(t *testing.T) {
	// 2024-01-01 is a Monday.
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())

	cfg := testConfig()

	tests := []struct {
		name  string
		date  time.Time
		today time.Time
		mod   func(*Config)
		want  bool
	}{
		{"same day", monday, monday, nil, true},
		{"future weekday within window", monday.AddDate(0, 0, 3), monday, nil, true},
		{"past date", monday.AddDate(0, 0, -1), monday, nil, false},
		{"beyond advance window", monday.AddDate(0, 0, 31), monday, nil, false},
		{"at advance window edge", monday.AddDate(0, 0, 30), monday, nil, true},
		{"same-day-only window keeps today", monday, monday, func(c *Config) {
			c.AdvanceBookingDays = 0
		}, true},
		{"same-day-only window drops tomorrow", monday.AddDate(0, 0, 1), monday, func(c *Config) {
			c.AdvanceBookingDays = 0
		}, false},
		{"disabled weekday", monday.AddDate(0, 0, 5), monday, nil, false}, // Saturday
		{"blocked date", monday.AddDate(0, 0, 2), monday, func(c *Config) {
			c.BlockedDates["2024-01-03"] = struct{}{}
		}, false},
		{"weekday missing from hours", monday, monday, func(c *Config) {
			delete(c.Hours, time.Monday)
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.BlockedDates = map[string]struct{}{}
			c.Hours = weekdayHours()
			if tt.mod != nil {
				tt.mod(&c)
			}
			assert.Equal(t, tt.want, IsBookable(tt.date, c, tt.today))
		})
	}
}

func TestIsBookableIgnoresTimeOfDay(t *testing.T) {
	monday := time.Date(2024, 1, 1, 23, 45, 0, 0, time.UTC)
	today := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	assert.True(t, IsBookable(monday, testConfig(), today),
		"a later clock time on the same calendar day is not a past date")
}

func TestIsBookableUsesProviderTimezone(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Location = denver
	cfg.BlockedDates["2024-01-02"] = struct{}{}

	// 2024-01-03 01:00 UTC is still Jan 2 in Denver, so the block applies.
	date := time.Date(2024, 1, 3, 1, 0, 0, 0, time.UTC)
	today := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, IsBookable(date, cfg, today))
}

func TestBookableDates(t *testing.T) {
	cfg := testConfig()
	cfg.AdvanceBookingDays = 10
	cfg.BlockedDates["2024-01-03"] = struct{}{}

	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := BookableDates(2024, time.January, cfg, today)

	// Jan 1..11 minus weekend (6,7) minus blocked (3): 1,2,4,5,8,9,10,11.
	var days []int
	for _, d := range dates {
		days = append(days, d.Day())
	}
	assert.Equal(t, []int{1, 2, 4, 5, 8, 9, 10, 11}, days)
}
