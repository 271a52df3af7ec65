package timeparsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompactDuration(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"+6h", time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)},
		{"+1d", time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)},
		{"2w", time.Date(2025, 6, 29, 12, 0, 0, 0, time.UTC)},
		{"+3m", time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)},
		{"1y", time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)},
		{"-1d", time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)},
		{"-6h", time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC)},
		{"+0d", now},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCompactDuration(tt.input, now)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}

	for _, bad := range []string{"", "6h+", "++1d", "1x", "+d", "tomorrow"} {
		_, err := ParseCompactDuration(bad, now)
		assert.Error(t, err, bad)
		assert.False(t, IsCompactDuration(bad), bad)
	}
}

func TestParseCompactDurationCalendar(t *testing.T) {
	leap := time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC)
	got, err := ParseCompactDuration("+1d", leap)
	require.NoError(t, err)
	assert.Equal(t, 29, got.Day())

	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skip("timezone America/Sao_Paulo not available")
	}
	got, err = ParseCompactDuration("+1w", time.Date(2025, 6, 15, 12, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
}

func TestParseRelativeTimeLayers(t *testing.T) {
	// Wednesday, January 15, 2025, 10:00
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

	tests := []struct {
		input     string
		wantMonth time.Month
		wantDay   int
		wantHour  int // -1 skips the hour check
	}{
		{"+1d", time.January, 16, 10},
		{"+6h", time.January, 15, 16},
		{"2025-02-01", time.February, 1, 0},
		{"2025-03-15T14:30:00Z", time.March, 15, -1},
		{"2025-03-15 09:45", time.March, 15, 9},
		{"tomorrow", time.January, 16, -1},
		{"next monday", time.January, 20, -1},
		{"tomorrow at 9am", time.January, 16, 9},
		{"in 3 days", time.January, 18, -1},
		{"3 days ago", time.January, 12, -1},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, 2025, got.Year())
			assert.Equal(t, tt.wantMonth, got.Month())
			assert.Equal(t, tt.wantDay, got.Day())
			if tt.wantHour >= 0 {
				assert.Equal(t, tt.wantHour, got.Hour())
			}
		})
	}
}

func TestParseRelativeTimeRejects(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	_, err := ParseRelativeTime("   ", now)
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = ParseRelativeTime("not-a-date", now)
	assert.Error(t, err)
	_, err = ParseNaturalLanguage("xyzzy plugh", now)
	assert.Error(t, err)
}

func TestCompactTakesPrecedence(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)
	got, err := ParseRelativeTime("+1d", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(now.AddDate(0, 0, 1)))
}

func TestParseDue(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	due, err := ParseDue("none", now)
	require.NoError(t, err)
	assert.Nil(t, due)

	due, err = ParseDue("+2d", now)
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, 17, due.Day())

	_, err = ParseDue("xyzzy", now)
	assert.Error(t, err)
}
