package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedCredential = errors.New("malformed credential")
	ErrExpired             = errors.New("session expired")
	ErrTransport           = errors.New("service unreachable")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrFormat              = errors.New("format error")
	ErrNoValidRecords      = errors.New("no valid records")
	ErrValidation          = errors.New("validation failed")
	ErrServer              = errors.New("remote service error")
	ErrInsufficientStock   = errors.New("insufficient stock")
)

// ConflictError keeps the explanation returned by the remote service so it
// can be shown to the user unmodified.
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return e.Detail
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// RemoteError is a non-success response from a remote service.
type RemoteError struct {
	StatusCode int
	Detail     string
	Kind       error
}

func (e *RemoteError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("remote status %d: %v", e.StatusCode, e.Kind)
	}
	return fmt.Sprintf("remote status %d: %s", e.StatusCode, e.Detail)
}

func (e *RemoteError) Unwrap() error {
	return e.Kind
}

// ValidationError names the offending field so the message can say how to fix it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
