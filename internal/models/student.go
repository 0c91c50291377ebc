package models

import "time"

// Student represents a learner registered in the institution.
// CPF doubles as the Moodle username.
type Student struct {
	ID        string    `db:"id" json:"id"`
	CPF       string    `db:"cpf" json:"cpf"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	LastName  string    `db:"last_name" json:"last_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Profile returns the reconcilable subset of the student record.
func (s *Student) Profile() ProfileFields {
	return ProfileFields{Email: s.Email, Name: s.Name, LastName: s.LastName}
}

// ProfileFields is the ordered field set compared between local and remote profiles.
type ProfileFields struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
}
