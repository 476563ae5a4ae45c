package shared

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrDeviceAccess is fatal to a capture session: permission denied or no
	// usable device. The session must be closed by the caller.
	ErrDeviceAccess = errors.New("device access denied")

	// ErrDeviceBusy means the requested device stream is already held by
	// another session.
	ErrDeviceBusy = errors.New("device stream in use")

	// ErrCompression aborts a single item's capture; other items are unaffected.
	ErrCompression = errors.New("compression failed")

	// ErrFrameExtraction is recovered locally: the video item is kept with
	// whatever thumbnail is available and no additional frames.
	ErrFrameExtraction = errors.New("frame extraction failed")

	// ErrUpload is per item; the batch continues without it.
	ErrUpload = errors.New("upload failed")

	// ErrPayloadTooLarge is retriable by the user after reducing item count
	// or size. Submissions are never retried automatically.
	ErrPayloadTooLarge = errors.New("submission payload too large")

	ErrGeolocation = errors.New("geolocation unavailable")

	// ErrValidation rejects a submission before any network call.
	ErrValidation = errors.New("submission validation failed")

	ErrSessionClosed = errors.New("capture session closed")
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

func (e *APIError) ToHTTP(status int) *echo.HTTPError {
	return echo.NewHTTPError(status, e)
}

func BadRequest(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusBadRequest)
}

func Unauthorized(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusUnauthorized)
}

func Forbidden(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusForbidden)
}

func NotFound(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusNotFound)
}

func Conflict(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusConflict)
}

func PayloadTooLarge(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusRequestEntityTooLarge)
}

func InternalError(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusInternalServerError)
}
