package model

import "time"

// TimestampLayout matches the ISO-8601 form written into the timestamp column.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DefaultSource is recorded when the form does not say where it was submitted from.
const DefaultSource = "unknown"

// Columns is the header line of the submissions file, fixed when the file is created.
var Columns = []string{"timestamp", "name", "phone", "email", "symptoms", "source"}

// Submission is one consultation request received from the contact form.
// Accepts JSON and urlencoded bodies.
type Submission struct {
	Timestamp string `json:"timestamp" form:"-"`
	Name      string `json:"name" form:"name" validate:"required"`
	Phone     string `json:"phone" form:"phone" validate:"required"`
	Email     string `json:"email" form:"email" validate:"required"`
	Symptoms  string `json:"symptoms" form:"symptoms"`
	Source    string `json:"source" form:"source"`
}

// Stamp sets the receipt time and fills optional fields with their defaults.
func (s *Submission) Stamp(now time.Time) {
	s.Timestamp = now.UTC().Format(TimestampLayout)
	if s.Source == "" {
		s.Source = DefaultSource
	}
}

// Values returns the field values in Columns order.
func (s Submission) Values() []string {
	return []string{s.Timestamp, s.Name, s.Phone, s.Email, s.Symptoms, s.Source}
}

// SubmissionFromRow maps a decoded CSV row back onto a Submission.
// Absent columns stay empty.
func SubmissionFromRow(row map[string]string) Submission {
	return Submission{
		Timestamp: row["timestamp"],
		Name:      row["name"],
		Phone:     row["phone"],
		Email:     row["email"],
		Symptoms:  row["symptoms"],
		Source:    row["source"],
	}
}
