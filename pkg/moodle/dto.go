package moodle

import (
	"errors"
	"strconv"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

type userDTO struct {
	ID        *int64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

func (u userDTO) toModel() (models.RemoteProfile, error) {
	if u.ID == nil {
		return models.RemoteProfile{}, errors.New("missing id")
	}
	return models.RemoteProfile{
		ID:       *u.ID,
		Username: u.Username,
		Email:    u.Email,
		Name:     u.FirstName,
		LastName: u.LastName,
	}, nil
}

type courseDTO struct {
	ID         *int64   `json:"id"`
	LastAccess *int64   `json:"lastaccess"`
	Progress   *float64 `json:"progress"`
	Completed  *bool    `json:"completed"`
	StartDate  int64    `json:"startdate"`
}

func (c courseDTO) toModel() (models.RemoteCourseEnrollment, error) {
	if c.ID == nil {
		return models.RemoteCourseEnrollment{}, errors.New("missing id")
	}
	enrollment := models.RemoteCourseEnrollment{
		CourseExternalID: strconv.FormatInt(*c.ID, 10),
		Progress:         c.Progress,
		StartDate:        c.StartDate,
	}
	// Moodle reports 0 for users that never opened the course.
	if c.LastAccess != nil && *c.LastAccess > 0 {
		enrollment.LastAccess = c.LastAccess
	}
	if c.Completed != nil {
		enrollment.Completed = *c.Completed
	}
	return enrollment, nil
}
