package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmuroya/taskward/internal/task"
)

func tokyoConfig(t *testing.T) Config {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return Config{
		Location:    loc,
		StartHour:   9,
		StartMinute: 0,
		EndHour:     18,
		EndMinute:   0,
	}
}

func TestComputeDueAt(t *testing.T) {
	cfg := tokyoConfig(t)
	loc := cfg.Location

	// 2025-03-12 is a Wednesday, 2025-03-14 a Friday.
	wedNoon := time.Date(2025, 3, 12, 12, 0, 0, 0, loc)

	tests := []struct {
		name    string
		urgency task.Urgency
		now     time.Time
		want    time.Time
	}{
		{
			name:    "red is due immediately",
			urgency: task.UrgencyRed,
			now:     wedNoon,
			want:    wedNoon,
		},
		{
			name:    "orange is due in exactly 60 minutes",
			urgency: task.UrgencyOrange,
			now:     wedNoon,
			want:    wedNoon.Add(60 * time.Minute),
		},
		{
			name:    "yellow before close resolves to today's close",
			urgency: task.UrgencyYellow,
			now:     wedNoon,
			want:    time.Date(2025, 3, 12, 18, 0, 0, 0, loc),
		},
		{
			name:    "yellow exactly at close still counts as today",
			urgency: task.UrgencyYellow,
			now:     time.Date(2025, 3, 12, 18, 0, 0, 0, loc),
			want:    time.Date(2025, 3, 12, 18, 0, 0, 0, loc),
		},
		{
			name:    "yellow after close rolls to the next weekday",
			urgency: task.UrgencyYellow,
			now:     time.Date(2025, 3, 12, 19, 30, 0, 0, loc),
			want:    time.Date(2025, 3, 13, 18, 0, 0, 0, loc),
		},
		{
			name:    "yellow friday evening rolls over the weekend",
			urgency: task.UrgencyYellow,
			now:     time.Date(2025, 3, 14, 21, 0, 0, 0, loc),
			want:    time.Date(2025, 3, 17, 18, 0, 0, 0, loc),
		},
		{
			name:    "yellow on saturday resolves to monday",
			urgency: task.UrgencyYellow,
			now:     time.Date(2025, 3, 15, 10, 0, 0, 0, loc),
			want:    time.Date(2025, 3, 17, 18, 0, 0, 0, loc),
		},
		{
			name:    "green is always at least one weekday out",
			urgency: task.UrgencyGreen,
			now:     wedNoon,
			want:    time.Date(2025, 3, 13, 18, 0, 0, 0, loc),
		},
		{
			name:    "green on friday resolves to monday",
			urgency: task.UrgencyGreen,
			now:     time.Date(2025, 3, 14, 9, 0, 0, 0, loc),
			want:    time.Date(2025, 3, 17, 18, 0, 0, 0, loc),
		},
		{
			name:    "green on sunday resolves to monday",
			urgency: task.UrgencyGreen,
			now:     time.Date(2025, 3, 16, 12, 0, 0, 0, loc),
			want:    time.Date(2025, 3, 17, 18, 0, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDueAt(tt.urgency, tt.now, cfg)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestComputeDueAtUsesConfiguredZone(t *testing.T) {
	cfg := tokyoConfig(t)

	// 15:30 UTC on Wednesday is already past midnight into Thursday in
	// Tokyo; the weekday and close must come from the configured zone.
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC) // Thu 00:30 JST
	got := ComputeDueAt(task.UrgencyYellow, now, cfg)
	want := time.Date(2025, 3, 13, 18, 0, 0, 0, cfg.Location)
	assert.True(t, got.Equal(want), "got %s, want %s", got, want)
}

func TestWithinBusinessHours(t *testing.T) {
	cfg := tokyoConfig(t)
	loc := cfg.Location

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"weekday noon", time.Date(2025, 3, 12, 12, 0, 0, 0, loc), true},
		{"weekday exactly at open", time.Date(2025, 3, 12, 9, 0, 0, 0, loc), true},
		{"weekday exactly at close", time.Date(2025, 3, 12, 18, 0, 0, 0, loc), true},
		{"weekday before open", time.Date(2025, 3, 12, 8, 59, 0, 0, loc), false},
		{"weekday after close", time.Date(2025, 3, 12, 18, 1, 0, 0, loc), false},
		{"saturday noon", time.Date(2025, 3, 15, 12, 0, 0, 0, loc), false},
		{"sunday noon", time.Date(2025, 3, 16, 12, 0, 0, 0, loc), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinBusinessHours(tt.now, cfg))
		})
	}
}
