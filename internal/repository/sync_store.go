package repository

import "github.com/jmoiron/sqlx"

// SyncStore is the storage collaborator of a reconciliation: enrollment history
// plus the student profile it may overwrite.
type SyncStore struct {
	*EnrollmentRepository
	*StudentRepository
}

// NewSyncStore constructs a SyncStore sharing one database handle.
func NewSyncStore(db *sqlx.DB) *SyncStore {
	return &SyncStore{
		EnrollmentRepository: NewEnrollmentRepository(db),
		StudentRepository:    NewStudentRepository(db),
	}
}
