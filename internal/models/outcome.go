package models

import "net/http"

// OutcomeCode classifies how a reconciliation ended.
type OutcomeCode string

// Reconciliation outcomes. Every run ends in exactly one of them.
const (
	OutcomeSuccess             OutcomeCode = "SUCCESS"
	OutcomeBadRequest          OutcomeCode = "BAD_REQUEST"
	OutcomeUpstreamUnavailable OutcomeCode = "UPSTREAM_UNAVAILABLE"
	OutcomeUpstreamMalformed   OutcomeCode = "UPSTREAM_MALFORMED"
	OutcomeNotFoundRemote      OutcomeCode = "NOT_FOUND_REMOTE"
	OutcomeAmbiguousRemote     OutcomeCode = "AMBIGUOUS_REMOTE"
	OutcomeNotEnrolled         OutcomeCode = "NOT_ENROLLED"
)

// HTTPStatus maps the outcome onto the status code used by the HTTP surface.
func (c OutcomeCode) HTTPStatus() int {
	switch c {
	case OutcomeSuccess:
		return http.StatusOK
	case OutcomeBadRequest:
		return http.StatusBadRequest
	case OutcomeNotFoundRemote, OutcomeNotEnrolled:
		return http.StatusNotFound
	case OutcomeUpstreamUnavailable, OutcomeUpstreamMalformed, OutcomeAmbiguousRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Outcome is the single terminal result of one reconciliation.
type Outcome struct {
	Code       OutcomeCode `json:"status_code"`
	Messages   []string    `json:"messages"`
	LastAccess *int64      `json:"last_access,omitempty"`
	Progress   *float64    `json:"progress,omitempty"`
}

// Succeeded reports whether the outcome is a completed classification.
func (o Outcome) Succeeded() bool {
	return o.Code == OutcomeSuccess
}
