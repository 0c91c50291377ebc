package service

import (
	"strconv"
	"time"
)

// MessageFormatter renders timestamps and percentages inside audit messages.
// One instance is built at startup and shared by every reconciliation.
type MessageFormatter struct {
	location *time.Location
	layout   string
}

// NewMessageFormatter constructs a formatter; nil location means UTC.
func NewMessageFormatter(location *time.Location, layout string) *MessageFormatter {
	if location == nil {
		location = time.UTC
	}
	if layout == "" {
		layout = "02/01/2006 15:04"
	}
	return &MessageFormatter{location: location, layout: layout}
}

// Time formats t in the configured zone.
func (f *MessageFormatter) Time(t time.Time) string {
	if f == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return t.In(f.location).Format(f.layout)
}

// Percent formats a progress value without trailing zeros.
func (f *MessageFormatter) Percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}
