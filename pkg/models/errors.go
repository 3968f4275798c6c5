package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so that degraded reports can say why
type ErrorKind string

const (
	// KindConfig is a missing env var, credential file or spreadsheet ID
	KindConfig ErrorKind = "config"
	// KindProvider is a failed call to Google Sheets, Calendar or an ICS feed
	KindProvider ErrorKind = "provider"
	// KindData is a malformed record, such as an unparsable date
	KindData ErrorKind = "data"
)

// Error wraps an underlying error with its kind and the component that hit it
type Error struct {
	Kind      ErrorKind
	Component string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Component, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ConfigError builds a KindConfig error
func ConfigError(component string, err error) error {
	return &Error{Kind: KindConfig, Component: component, Err: err}
}

// ProviderError builds a KindProvider error
func ProviderError(component string, err error) error {
	return &Error{Kind: KindProvider, Component: component, Err: err}
}

// DataError builds a KindData error
func DataError(component string, err error) error {
	return &Error{Kind: KindData, Component: component, Err: err}
}

// KindOf returns the kind of err, defaulting to KindProvider for foreign errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindProvider
}

// ErrNotConfigured is wrapped by config errors for absent settings
var ErrNotConfigured = errors.New("not configured")

// Issue is the user-visible trace of a swallowed component error
type Issue struct {
	Component string    `json:"component"`
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
}

// IssueFrom converts an error into an Issue
func IssueFrom(component string, err error) Issue {
	var e *Error
	if errors.As(err, &e) && e.Component != "" {
		component = e.Component
	}
	return Issue{Component: component, Kind: KindOf(err), Message: err.Error()}
}
