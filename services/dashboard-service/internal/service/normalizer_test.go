package service

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/schoolvax/portal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStudents(t *testing.T) {
	n := NewNormalizer(logger.Discard())
	before := promtestutil.ToFloat64(droppedRecords.WithLabelValues("student"))

	students := n.NormalizeStudents(json.RawMessage(`[
		{"id": 1, "class": "5A", "vaccinationRecords": [{"vaccine": "MMR"}]},
		{"_id": "abc", "class": 6, "vaccinationRecords": null},
		{"id": "s3", "class": "5B"},
		{"class": "5A"},
		{"id": "s5"},
		{"id": "s6", "class": "5A", "vaccinationRecords": "yes"},
		"not-an-object",
		42
	]`))

	require.Len(t, students, 3)

	assert.Equal(t, "1", students[0].ID)
	assert.Equal(t, "5A", students[0].Class)
	assert.True(t, students[0].Vaccinated())

	assert.Equal(t, "abc", students[1].ID)
	assert.Equal(t, "6", students[1].Class)
	assert.NotNil(t, students[1].VaccinationRecords)
	assert.False(t, students[1].Vaccinated())

	assert.Equal(t, "s3", students[2].ID)
	assert.Empty(t, students[2].VaccinationRecords)

	assert.Equal(t, float64(5), promtestutil.ToFloat64(droppedRecords.WithLabelValues("student"))-before)
}

func TestNormalizeStudents_WrongShape(t *testing.T) {
	n := NewNormalizer(logger.Discard())

	for _, raw := range []string{`{"data": []}`, `"students"`, `null`, ``, `17`} {
		students := n.NormalizeStudents(json.RawMessage(raw))
		assert.NotNil(t, students, raw)
		assert.Empty(t, students, raw)
	}
}

func TestNormalizeDrives(t *testing.T) {
	n := NewNormalizer(logger.Discard())

	drives := n.NormalizeDrives(json.RawMessage(`{"data": [
		{"id": "d1", "vaccineName": "MMR", "date": "2026-11-01T09:30:00Z", "grades": ["5A", "5B"], "avilableDoses": 40, "isExpired": false},
		{"_id": "d2", "vaccineName": "Polio", "date": "2026-11-02", "availableDoses": "12"},
		{"id": "d3", "date": "2026-11-03T10:00:00", "avilableDoses": 5, "availableDoses": 9, "isExpired": true},
		{"id": "d4", "date": "next tuesday"},
		{"id": "d5", "isExpired": "no"},
		{"vaccineName": "orphan"},
		[1, 2]
	]}`))

	require.Len(t, drives, 4)

	d1 := drives[0]
	assert.Equal(t, "d1", d1.ID)
	assert.Equal(t, "MMR", d1.VaccineName)
	assert.Equal(t, "2026-11-01T09:30:00Z", d1.Date)
	assert.Equal(t, time.Date(2026, 11, 1, 9, 30, 0, 0, time.UTC), d1.ScheduledAt)
	assert.JSONEq(t, `["5A","5B"]`, string(d1.Grades))
	require.NotNil(t, d1.AvailableDoses)
	assert.Equal(t, int64(40), *d1.AvailableDoses)
	assert.False(t, d1.IsExpired)

	d2 := drives[1]
	assert.Equal(t, "d2", d2.ID)
	assert.Equal(t, time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), d2.ScheduledAt)
	require.NotNil(t, d2.AvailableDoses)
	assert.Equal(t, int64(12), *d2.AvailableDoses)
	assert.Nil(t, d2.Grades)

	d3 := drives[2]
	assert.True(t, d3.IsExpired)
	assert.Equal(t, time.Date(2026, 11, 3, 10, 0, 0, 0, time.UTC), d3.ScheduledAt)
	require.NotNil(t, d3.AvailableDoses)
	assert.Equal(t, int64(5), *d3.AvailableDoses, "the misspelled key takes precedence")

	d4 := drives[3]
	assert.Equal(t, "next tuesday", d4.Date)
	assert.True(t, d4.ScheduledAt.IsZero())
	assert.Nil(t, d4.AvailableDoses)
}

func TestNormalizeDrives_Envelope(t *testing.T) {
	n := NewNormalizer(logger.Discard())

	tests := []struct {
		name string
		raw  string
	}{
		{"missing data", `{}`},
		{"null data", `{"data": null}`},
		{"data not array", `{"data": {"id": "d1"}}`},
		{"bare array", `[{"id": "d1"}]`},
		{"scalar", `"drives"`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drives := n.NormalizeDrives(json.RawMessage(tt.raw))
			assert.NotNil(t, drives)
			assert.Empty(t, drives)
		})
	}
}

func TestParseDate_UnixMillis(t *testing.T) {
	date, at := parseDate(json.RawMessage(`1793520000000`))
	assert.Equal(t, time.UnixMilli(1793520000000).UTC(), at)
	assert.Equal(t, at.Format(time.RFC3339Nano), date)
}

func TestParseDate_NumericOffset(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{`"2099-01-01T00:00:00.000+0000"`, time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)},
		{`"2099-01-01T02:30:00+0230"`, time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)},
		{`"2024-05-10T09:00:00.5-0500"`, time.Date(2024, 5, 10, 14, 0, 0, 5e8, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			date, at := parseDate(json.RawMessage(tt.raw))
			assert.False(t, at.IsZero())
			assert.True(t, tt.want.Equal(at), "got %s", at)
			assert.Equal(t, strings.Trim(tt.raw, `"`), date)
		})
	}
}

func TestInteger(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{`10`, 10, false},
		{`"7"`, 7, false},
		{`10.0`, 10, false},
		{`10.5`, 0, true},
		{`"many"`, 0, true},
		{`null`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		got, err := integer(json.RawMessage(tt.raw))
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		assert.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}
