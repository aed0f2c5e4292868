package errors

import (
	"errors"
	"net/http"
	"strings"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Error is the API error type carried from services to the response layer.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *Error) Error() string {
	return e.Message
}

// New creates a new Error with the given message and HTTP status.
func New(message string, status int) *Error {
	return &Error{Message: message, Status: status}
}

var (
	ErrBadRequest          = New("bad request", http.StatusBadRequest)
	ErrNotFound            = New("not found", http.StatusNotFound)
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
	InActiveUserError      = errors.New("user inactive")

	// StorageUnavailable covers transient persistence failures. Callers must
	// not proceed with fabricated ids; retry policy belongs to the caller.
	ErrStorageUnavailable = New("storage unavailable", http.StatusServiceUnavailable)
	ErrStorage            = New("storage error", http.StatusInternalServerError)
)

// ValidationError rejects a request before it reaches storage.
func ValidationError(message string) *Error {
	return New(message, http.StatusBadRequest)
}

// NotFoundError marks a missing conversation, user or participant.
func NotFoundError(message string) *Error {
	return New(message, http.StatusNotFound)
}

// GetUniqueContraintError translates a unique-violation DB error into the
// user-facing duplicate message, keeping the raw constraint text out of
// responses.
func GetUniqueContraintError(err error) *Error {
	if IsUniqueViolation(err) {
		return New("record already exists", http.StatusConflict)
	}
	return New(err.Error(), http.StatusInternalServerError)
}

// IsUniqueViolation reports whether err is a uniqueness-constraint failure,
// across the postgres and sqlite drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicated key")
}

// ErrorHandler is plugged into the rate limiter for over-limit responses.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"message": "too many requests",
		"status":  http.StatusText(http.StatusTooManyRequests),
	})
}
