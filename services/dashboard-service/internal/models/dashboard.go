package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type Overview struct {
	TotalStudents         int             `json:"totalStudents"`
	VaccinationPercentage Ratio           `json:"vaccinationPercentage"`
	UpcomingDrives        int             `json:"upcomingDrives"`
	UpcomingDrivesList    []UpcomingDrive `json:"upcomingDrivesList"`
}

// UpcomingDrive is the projection of a Drive shown on the overview.
type UpcomingDrive struct {
	ID             string          `json:"id"`
	VaccineName    string          `json:"vaccineName"`
	Date           string          `json:"date"`
	Grades         json.RawMessage `json:"grades,omitempty"`
	AvailableDoses *int64          `json:"availableDoses,omitempty"`
}

type Stats struct {
	TotalDrives              int             `json:"totalDrives"`
	CompletedDrives          int             `json:"completedDrives"`
	ActiveDrives             int             `json:"activeDrives"`
	AverageStudentsPerDrive  Ratio           `json:"averageStudentsPerDrive"`
	StudentParticipationRate Ratio           `json:"studentParticipationRate"`
	VaccinationByGrade       *GradeBreakdown `json:"vaccinationByGrade"`
}

type GradeStats struct {
	Total      int   `json:"total"`
	Vaccinated int   `json:"vaccinated"`
	Percentage Ratio `json:"percentage"`
}

// Ratio is a derived figure rounded to two decimals. A defined ratio encodes as
// a string ("50.00"); an undefined one (zero denominator) encodes as the number 0.
type Ratio struct {
	Value   float64
	Defined bool
}

func (r Ratio) String() string {
	if !r.Defined {
		return "0"
	}
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("0"), nil
	}
	return []byte(strconv.Quote(r.String())), nil
}

// GradeBreakdown keeps per-class stats in order of first appearance.
type GradeBreakdown struct {
	order  []string
	grades map[string]*GradeStats
}

func NewGradeBreakdown() *GradeBreakdown {
	return &GradeBreakdown{grades: make(map[string]*GradeStats)}
}

// Bucket returns the stats for class, creating it on first use.
func (b *GradeBreakdown) Bucket(class string) *GradeStats {
	if g, ok := b.grades[class]; ok {
		return g
	}
	g := &GradeStats{}
	b.grades[class] = g
	b.order = append(b.order, class)
	return g
}

func (b *GradeBreakdown) Get(class string) (GradeStats, bool) {
	g, ok := b.grades[class]
	if !ok {
		return GradeStats{}, false
	}
	return *g, true
}

func (b *GradeBreakdown) Classes() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

func (b *GradeBreakdown) Len() int {
	return len(b.order)
}

func (b *GradeBreakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, class := range b.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(class)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(b.grades[class])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
