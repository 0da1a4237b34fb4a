package service

import (
	"time"

	"github.com/schoolvax/portal/services/dashboard-service/internal/models"
	"gonum.org/v1/gonum/floats/scalar"
)

// percentage returns part/whole*100. A zero whole is undefined.
func percentage(part, whole int) models.Ratio {
	if whole == 0 {
		return models.Ratio{}
	}
	return models.Ratio{
		Value:   scalar.Round(float64(part)/float64(whole)*100, 2),
		Defined: true,
	}
}

func average(total, count int) models.Ratio {
	if count == 0 {
		return models.Ratio{}
	}
	return models.Ratio{
		Value:   scalar.Round(float64(total)/float64(count), 2),
		Defined: true,
	}
}

func countVaccinated(students []models.Student) int {
	n := 0
	for _, s := range students {
		if s.Vaccinated() {
			n++
		}
	}
	return n
}

func buildOverview(students []models.Student, drives []models.Drive, now time.Time) *models.Overview {
	// the overview always reports a string, "0.00" with no students
	pct := percentage(countVaccinated(students), len(students))
	pct.Defined = true

	upcoming := make([]models.UpcomingDrive, 0)
	for _, d := range drives {
		if !d.Upcoming(now) {
			continue
		}
		upcoming = append(upcoming, models.UpcomingDrive{
			ID:             d.ID,
			VaccineName:    d.VaccineName,
			Date:           d.Date,
			Grades:         d.Grades,
			AvailableDoses: d.AvailableDoses,
		})
	}

	return &models.Overview{
		TotalStudents:         len(students),
		VaccinationPercentage: pct,
		UpcomingDrives:        len(upcoming),
		UpcomingDrivesList:    upcoming,
	}
}

func buildStats(students []models.Student, drives []models.Drive) *models.Stats {
	completed := 0
	for _, d := range drives {
		if d.IsExpired {
			completed++
		}
	}

	return &models.Stats{
		TotalDrives:              len(drives),
		CompletedDrives:          completed,
		ActiveDrives:             len(drives) - completed,
		AverageStudentsPerDrive:  average(len(students), len(drives)),
		StudentParticipationRate: percentage(countVaccinated(students), len(students)),
		VaccinationByGrade:       gradeBreakdown(students),
	}
}

func gradeBreakdown(students []models.Student) *models.GradeBreakdown {
	b := models.NewGradeBreakdown()
	for _, s := range students {
		g := b.Bucket(s.Class)
		g.Total++
		if s.Vaccinated() {
			g.Vaccinated++
		}
	}
	for _, class := range b.Classes() {
		g := b.Bucket(class)
		g.Percentage = percentage(g.Vaccinated, g.Total)
	}
	return b
}
