package errs

import (
	"errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrEmptyDates       = errors.New("checkInDate and checkOutDate are required")
	ErrDraftNotFound    = errors.New("draft not found")
	ErrRefreshInFlight  = errors.New("refresh already in flight")
	ErrEditNotPermitted = errors.New("reservation can only be edited while PENDING or CONFIRMED")
)

// Structured error codes carried by the upstream hotel API in response
// bodies. The workflow branches on Code, not on HTTP status alone.
const (
	CodeRoomTypeNotAvailable = "ROOM_TYPE_NOT_AVAILABLE"
	CodeValidationError      = "VALIDATION_ERROR"
)

type APIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

func New(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// Code extracts the structured code from err, empty when absent.
func Code(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func IsRoomTypeNotAvailable(err error) bool {
	return Code(err) == CodeRoomTypeNotAvailable
}

func IsValidation(err error) bool {
	return Code(err) == CodeValidationError
}

// FullyBooked is the user-facing capacity-conflict error, produced both
// pre-emptively from an availability snapshot and reactively from the
// upstream rejection.
func FullyBooked(roomType string) *APIError {
	return &APIError{
		Code:    CodeRoomTypeNotAvailable,
		Message: "room type " + roomType + " is fully booked for the selected dates",
	}
}
