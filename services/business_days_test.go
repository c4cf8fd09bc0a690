package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimatedCompletionDate(t *testing.T) {
	cases := []struct {
		name string
		from time.Time
		days int
		want time.Time
	}{
		{"wednesday plus five", time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC), 5, time.Date(2025, 3, 19, 10, 0, 0, 0, time.UTC)},
		{"friday plus three", time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), 3, time.Date(2025, 3, 19, 9, 30, 0, 0, time.UTC)},
		{"saturday plus three", time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), 3, time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC)},
		{"sunday plus five", time.Date(2025, 3, 16, 8, 0, 0, 0, time.UTC), 5, time.Date(2025, 3, 21, 8, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EstimatedCompletionDate(tc.from, tc.days))
		})
	}
}

func TestEstimatedCompletionDateNeverOnWeekend(t *testing.T) {
	start := time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		from := start.AddDate(0, 0, i)
		for days := 3; days <= 5; days++ {
			got := EstimatedCompletionDate(from, days)
			assert.NotEqual(t, time.Saturday, got.Weekday())
			assert.NotEqual(t, time.Sunday, got.Weekday())
			assert.True(t, got.After(from))
			// n business days never span more than n + 2 weekends' worth of days
			assert.LessOrEqual(t, got.Sub(from), time.Duration(days+4)*24*time.Hour)
		}
	}
}
