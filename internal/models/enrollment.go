package models

import "time"

// StatusType is a stage of the enrollment lifecycle.
type StatusType string

// Lifecycle stages, in rank order.
const (
	StatusSent      StatusType = "Sent"
	StatusConfirmed StatusType = "Confirmed"
	StatusActive    StatusType = "Active"
	StatusCompleted StatusType = "Completed"
)

// StatusTypes lists every legal status from earliest to latest stage.
var StatusTypes = []StatusType{StatusSent, StatusConfirmed, StatusActive, StatusCompleted}

// Rank orders statuses along the lifecycle; unknown values rank -1.
func (s StatusType) Rank() int {
	for i, t := range StatusTypes {
		if t == s {
			return i
		}
	}
	return -1
}

func (s StatusType) String() string {
	return string(s)
}

// StatusRecord is one immutable entry of an enrollment's status history.
type StatusRecord struct {
	ID           string     `db:"id" json:"id"`
	EnrollmentID string     `db:"enrollment_id" json:"enrollment_id"`
	Type         StatusType `db:"enrollment_status_type" json:"type"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Enrollment captures a student's registration in a course class.
type Enrollment struct {
	ID             string     `db:"id" json:"id"`
	StudentID      string     `db:"student_id" json:"student_id"`
	CourseClassID  string     `db:"course_class_id" json:"course_class_id"`
	CourseID       string     `db:"course_id" json:"course_id"`
	CourseMoodleID string     `db:"course_moodle_id" json:"course_moodle_id"`
	ConfirmedAt    *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	LastAccessAt   *time.Time `db:"last_access_at" json:"last_access_at,omitempty"`
	Progress       float64    `db:"progress" json:"progress"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`

	StatusHistory []StatusRecord `db:"-" json:"status_history"`
}

// HasStatus reports whether any history entry carries the given type.
func (e *Enrollment) HasStatus(status StatusType) bool {
	for _, record := range e.StatusHistory {
		if record.Type == status {
			return true
		}
	}
	return false
}

// SyncInput is everything the reconciliation needs about one stored enrollment.
type SyncInput struct {
	EnrollmentID        string     `db:"enrollment_id" json:"enrollment_id"`
	CourseClassID       string     `db:"course_class_id" json:"course_class_id"`
	CourseID            string     `db:"course_id" json:"course_id"`
	CourseMoodleID      string     `db:"course_moodle_id" json:"course_moodle_id"`
	ConfirmedAt         *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	LastStatusType      StatusType `db:"last_status_type" json:"last_status_type"`
	LastStatusCreatedAt time.Time  `db:"last_status_created_at" json:"last_status_created_at"`
	StudentID           string     `db:"student_id" json:"student_id"`
	StudentCPF          string     `db:"student_cpf" json:"student_cpf"`
	StudentEmail        string     `db:"student_email" json:"student_email"`
	StudentName         string     `db:"student_name" json:"student_name"`
	StudentLastName     string     `db:"student_last_name" json:"student_last_name"`
}

// Profile returns the locally cached profile fields of the input's student.
func (in SyncInput) Profile() ProfileFields {
	return ProfileFields{Email: in.StudentEmail, Name: in.StudentName, LastName: in.StudentLastName}
}

// EnrollmentFilter narrows batch listings.
type EnrollmentFilter struct {
	CourseClassID string
}
