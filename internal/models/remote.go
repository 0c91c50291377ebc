package models

import "time"

// RemoteProfile is a Moodle user as returned by the user lookup.
type RemoteProfile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
}

// Fields returns the reconcilable subset of the remote profile.
func (p RemoteProfile) Fields() ProfileFields {
	return ProfileFields{Email: p.Email, Name: p.Name, LastName: p.LastName}
}

// RemoteCourseEnrollment carries the per-course signals Moodle reports for one user.
// LastAccess and Progress are nil when Moodle has no value for them.
type RemoteCourseEnrollment struct {
	CourseExternalID string   `json:"course_external_id"`
	LastAccess       *int64   `json:"last_access,omitempty"`
	Progress         *float64 `json:"progress,omitempty"`
	Completed        bool     `json:"completed"`
	StartDate        int64    `json:"start_date"`
}

// Access returns the paired access signal, or nil when either half is missing.
func (c RemoteCourseEnrollment) Access() *AccessSignal {
	if c.LastAccess == nil || c.Progress == nil || *c.LastAccess <= 0 {
		return nil
	}
	return &AccessSignal{LastAccess: time.Unix(*c.LastAccess, 0).UTC(), Progress: *c.Progress}
}

// AccessSignal is a last-access timestamp together with its progress value.
type AccessSignal struct {
	LastAccess time.Time
	Progress   float64
}
