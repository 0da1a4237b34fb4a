package models

import "encoding/json"

// Student is a person record from the student service.
type Student struct {
	ID                 string
	Class              string
	VaccinationRecords []json.RawMessage
}

// Vaccinated reports whether the student has at least one vaccination record.
func (s Student) Vaccinated() bool {
	return len(s.VaccinationRecords) > 0
}
