// Package moodle talks to the Moodle web service REST endpoint.
//
// Every response is validated here; callers only ever see typed models or one of
// ErrUnavailable / ErrMalformed.
package moodle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

const endpoint = "/webservice/rest/server.php"

// Web service functions used by the reconciliation.
const (
	FunctionUsersByField = "core_user_get_users_by_field"
	FunctionUserCourses  = "core_enrol_get_users_courses"
)

var (
	// ErrUnavailable covers transport failures, non-2xx replies and Moodle exceptions.
	ErrUnavailable = errors.New("moodle unavailable")
	// ErrMalformed means the reply did not have the documented shape.
	ErrMalformed = errors.New("moodle response malformed")
)

// Observer receives one callback per web service call.
type Observer interface {
	ObserveMoodleRequest(function string, duration time.Duration, err error)
}

// Config configures the client.
type Config struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
	Logger    *zap.Logger
	Observer  Observer
}

// Client is a rate-limited Moodle web service client.
type Client struct {
	http     *resty.Client
	token    string
	limiter  *rate.Limiter
	logger   *zap.Logger
	observer Observer
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:     httpClient,
		token:    cfg.Token,
		limiter:  rate.NewLimiter(limit, cfg.RateBurst),
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}
}

type exceptionDTO struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}

// FindUsersByIdentifier looks users up by username (the student's CPF).
func (c *Client) FindUsersByIdentifier(ctx context.Context, identifier string) ([]models.RemoteProfile, error) {
	body, err := c.call(ctx, FunctionUsersByField, map[string]string{
		"field":     "username",
		"values[0]": identifier,
	})
	if err != nil {
		return nil, err
	}
	var users []userDTO
	if err := decodeArray(body, &users); err != nil {
		return nil, err
	}
	profiles := make([]models.RemoteProfile, 0, len(users))
	for i, u := range users {
		profile, err := u.toModel()
		if err != nil {
			return nil, fmt.Errorf("%w: user %d: %v", ErrMalformed, i, err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// FindCoursesForUser lists the courses a Moodle user is enrolled in.
func (c *Client) FindCoursesForUser(ctx context.Context, userID int64) ([]models.RemoteCourseEnrollment, error) {
	body, err := c.call(ctx, FunctionUserCourses, map[string]string{
		"userid": strconv.FormatInt(userID, 10),
	})
	if err != nil {
		return nil, err
	}
	var courses []courseDTO
	if err := decodeArray(body, &courses); err != nil {
		return nil, err
	}
	enrollments := make([]models.RemoteCourseEnrollment, 0, len(courses))
	for i, course := range courses {
		enrollment, err := course.toModel()
		if err != nil {
			return nil, fmt.Errorf("%w: course %d: %v", ErrMalformed, i, err)
		}
		enrollments = append(enrollments, enrollment)
	}
	return enrollments, nil
}

func (c *Client) call(ctx context.Context, function string, params map[string]string) (body []byte, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveMoodleRequest(function, time.Since(start), err)
		}
		if err != nil {
			c.logger.Warn("moodle request failed", zap.String("function", function), zap.Error(err))
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	form := map[string]string{
		"wstoken":            c.token,
		"wsfunction":         function,
		"moodlewsrestformat": "json",
	}
	for k, v := range params {
		form[k] = v
	}

	resp, err := c.http.R().SetContext(ctx).SetFormData(form).Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, function, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, function, resp.StatusCode())
	}

	body = bytes.TrimSpace(resp.Body())
	if len(body) > 0 && body[0] == '{' {
		var exc exceptionDTO
		if json.Unmarshal(body, &exc) == nil && exc.Exception != "" {
			return nil, fmt.Errorf("%w: %s: %s (%s)", ErrUnavailable, function, exc.Message, exc.ErrorCode)
		}
	}
	return body, nil
}

func decodeArray(body []byte, target interface{}) error {
	if len(body) == 0 || body[0] != '[' {
		return fmt.Errorf("%w: expected a collection", ErrMalformed)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
