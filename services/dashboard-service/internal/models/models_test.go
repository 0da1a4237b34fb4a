package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatioJSON(t *testing.T) {
	tests := []struct {
		name  string
		ratio Ratio
		want  string
	}{
		{"defined", Ratio{Value: 50, Defined: true}, `"50.00"`},
		{"defined zero", Ratio{Value: 0, Defined: true}, `"0.00"`},
		{"fraction", Ratio{Value: 33.33, Defined: true}, `"33.33"`},
		{"undefined", Ratio{}, `0`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.ratio)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}
}

func TestGradeBreakdownKeepsInsertionOrder(t *testing.T) {
	b := NewGradeBreakdown()
	b.Bucket("5B").Total++
	b.Bucket("5A").Total++
	b.Bucket("5B").Total++

	assert.Equal(t, []string{"5B", "5A"}, b.Classes())

	g, ok := b.Get("5B")
	require.True(t, ok)
	assert.Equal(t, 2, g.Total)

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t,
		`{"5B":{"total":2,"vaccinated":0,"percentage":0},"5A":{"total":1,"vaccinated":0,"percentage":0}}`,
		string(out))
}

func TestGradeBreakdownEmpty(t *testing.T) {
	out, err := json.Marshal(NewGradeBreakdown())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))
}

func TestDriveUpcoming(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	assert.True(t, Drive{ScheduledAt: now.Add(time.Hour)}.Upcoming(now))
	assert.False(t, Drive{ScheduledAt: now.Add(time.Hour), IsExpired: true}.Upcoming(now))
	assert.False(t, Drive{ScheduledAt: now.Add(-time.Hour)}.Upcoming(now))
	assert.False(t, Drive{ScheduledAt: now}.Upcoming(now))
	assert.False(t, Drive{}.Upcoming(now))
}

func TestOverviewOmitsMissingProjectionFields(t *testing.T) {
	out, err := json.Marshal(UpcomingDrive{ID: "d1", VaccineName: "MMR", Date: "2026-11-01"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"d1","vaccineName":"MMR","date":"2026-11-01"}`, string(out))
}
