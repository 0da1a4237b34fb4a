package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/schoolvax/portal/pkg/logger"
	"github.com/schoolvax/portal/services/dashboard-service/internal/models"
)

var (
	errNotObject    = errors.New("element is not an object")
	errMissingID    = errors.New("missing id")
	errMissingClass = errors.New("missing class")
	errBadRecords   = errors.New("vaccinationRecords is not an array")
	errBadIsExpired = errors.New("isExpired is not a boolean")
	errBadScalar    = errors.New("value is not a string or number")
	errNotIntegral  = errors.New("value is not an integer")
)

// Layouts without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// rawStudent is a student element as sent by the student service.
type rawStudent struct {
	ID                 json.RawMessage `json:"id"`
	MongoID            json.RawMessage `json:"_id"`
	Class              json.RawMessage `json:"class"`
	VaccinationRecords json.RawMessage `json:"vaccinationRecords"`
}

// rawDriveEnvelope is the drive service's list wrapper.
type rawDriveEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type rawDrive struct {
	ID          json.RawMessage `json:"id"`
	MongoID     json.RawMessage `json:"_id"`
	VaccineName json.RawMessage `json:"vaccineName"`
	Date        json.RawMessage `json:"date"`
	Grades      json.RawMessage `json:"grades"`
	// the drive service spells this field "avilableDoses"
	AvilableDoses  json.RawMessage `json:"avilableDoses"`
	AvailableDoses json.RawMessage `json:"availableDoses"`
	IsExpired      json.RawMessage `json:"isExpired"`
}

// Normalizer converts upstream payloads into strict records. Malformed elements
// are dropped and counted, never returned as errors.
type Normalizer struct {
	log logger.Logger
}

func NewNormalizer(log logger.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// NormalizeStudents expects a bare JSON array.
func (n *Normalizer) NormalizeStudents(raw json.RawMessage) []models.Student {
	elems, ok := n.array(raw, "students")
	if !ok {
		return []models.Student{}
	}

	students := make([]models.Student, 0, len(elems))
	for i, elem := range elems {
		s, err := decodeStudent(elem)
		if err != nil {
			n.drop("student", i, err)
			continue
		}
		students = append(students, s)
	}
	return students
}

// NormalizeDrives expects a {data: [...]} envelope; a missing data field is an
// empty list.
func (n *Normalizer) NormalizeDrives(raw json.RawMessage) []models.Drive {
	if !isObject(raw) {
		n.log.Warn("Unexpected drives payload shape, treating as empty")
		droppedRecords.WithLabelValues("drive_payload").Inc()
		return []models.Drive{}
	}

	var env rawDriveEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		n.log.Warn("Failed to decode drives envelope, treating as empty", logger.Err(err))
		droppedRecords.WithLabelValues("drive_payload").Inc()
		return []models.Drive{}
	}
	if isNull(env.Data) {
		return []models.Drive{}
	}

	elems, ok := n.array(env.Data, "drives")
	if !ok {
		return []models.Drive{}
	}

	drives := make([]models.Drive, 0, len(elems))
	for i, elem := range elems {
		d, err := decodeDrive(elem)
		if err != nil {
			n.drop("drive", i, err)
			continue
		}
		drives = append(drives, d)
	}
	return drives
}

func (n *Normalizer) array(raw json.RawMessage, what string) ([]json.RawMessage, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		if !isNull(raw) {
			n.log.Warn("Unexpected payload shape, treating as empty",
				logger.Field{Key: "payload", Value: what},
			)
			droppedRecords.WithLabelValues(what + "_payload").Inc()
		}
		return nil, false
	}
	return elems, true
}

func (n *Normalizer) drop(kind string, index int, err error) {
	droppedRecords.WithLabelValues(kind).Inc()
	n.log.Debug("Dropping malformed record",
		logger.Field{Key: "kind", Value: kind},
		logger.Field{Key: "index", Value: index},
		logger.Err(err),
	)
}

func decodeStudent(elem json.RawMessage) (models.Student, error) {
	if !isObject(elem) {
		return models.Student{}, errNotObject
	}
	var r rawStudent
	if err := json.Unmarshal(elem, &r); err != nil {
		return models.Student{}, err
	}

	id, err := identifier(r.ID, r.MongoID)
	if err != nil {
		return models.Student{}, err
	}
	class, err := scalarString(r.Class)
	if err != nil || class == "" {
		return models.Student{}, errMissingClass
	}

	records := []json.RawMessage{}
	if !isNull(r.VaccinationRecords) {
		if err := json.Unmarshal(r.VaccinationRecords, &records); err != nil {
			return models.Student{}, errBadRecords
		}
	}

	return models.Student{ID: id, Class: class, VaccinationRecords: records}, nil
}

func decodeDrive(elem json.RawMessage) (models.Drive, error) {
	if !isObject(elem) {
		return models.Drive{}, errNotObject
	}
	var r rawDrive
	if err := json.Unmarshal(elem, &r); err != nil {
		return models.Drive{}, err
	}

	id, err := identifier(r.ID, r.MongoID)
	if err != nil {
		return models.Drive{}, err
	}

	d := models.Drive{ID: id}

	if !isNull(r.IsExpired) {
		if err := json.Unmarshal(r.IsExpired, &d.IsExpired); err != nil {
			return models.Drive{}, errBadIsExpired
		}
	}

	// optional fields degrade to zero values
	d.VaccineName, _ = scalarString(r.VaccineName)
	d.Date, d.ScheduledAt = parseDate(r.Date)
	if !isNull(r.Grades) {
		d.Grades = r.Grades
	}

	doses := r.AvilableDoses
	if isNull(doses) {
		doses = r.AvailableDoses
	}
	if n, err := integer(doses); err == nil {
		d.AvailableDoses = &n
	}

	return d, nil
}

func identifier(id, mongoID json.RawMessage) (string, error) {
	if v, err := scalarString(id); err == nil && v != "" {
		return v, nil
	}
	if v, err := scalarString(mongoID); err == nil && v != "" {
		return v, nil
	}
	return "", errMissingID
}

// scalarString accepts a JSON string or number.
func scalarString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", errBadScalar
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", errBadScalar
}

func integer(raw json.RawMessage) (int64, error) {
	s, err := scalarString(raw)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, errNotIntegral
	}
	return int64(f), nil
}

// parseDate returns the date as sent plus its parsed time. Numbers are Unix
// milliseconds. Unparseable dates yield a zero time.
func parseDate(raw json.RawMessage) (string, time.Time) {
	if isNull(raw) {
		return "", time.Time{}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return s, t
			}
		}
		return s, time.Time{}
	}

	var ms json.Number
	if err := json.Unmarshal(raw, &ms); err == nil {
		if v, err := ms.Int64(); err == nil {
			t := time.UnixMilli(v).UTC()
			return t.Format(time.RFC3339Nano), t
		}
	}
	return "", time.Time{}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
