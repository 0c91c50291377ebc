package models

// Course is a catalogue entry mirrored by a Moodle course.
type Course struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	MoodleID string `db:"moodle_id" json:"moodle_id"`
}

// CourseClass is an offering of a course, managed by a set of administrators.
type CourseClass struct {
	ID             string   `db:"id" json:"id"`
	Name           string   `db:"name" json:"name"`
	CourseID       string   `db:"course_id" json:"course_id"`
	CourseName     string   `db:"course_name" json:"course_name"`
	CourseMoodleID string   `db:"course_moodle_id" json:"course_moodle_id"`
	Administrators []string `db:"-" json:"administrators"`
}

// IsAdministrator reports whether email manages the class.
func (c *CourseClass) IsAdministrator(email string) bool {
	for _, admin := range c.Administrators {
		if admin == email {
			return true
		}
	}
	return false
}
