package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer = 1000
	ErrInvalidParams  = 1001
	ErrNotFound       = 1002
	ErrUnauthorized   = 1003
	ErrBadRequest     = 1007
	ErrServiceUnavail = 1008
	ErrCancelled      = 1009

	// Session errors (2000-2999)
	ErrSession          = 2000
	ErrSessionNotFound  = 2001
	ErrProjectNotFound  = 2002
	ErrNotConnected     = 2003
	ErrInvalidPendingID = 2004
	ErrEmptyMessage     = 2005
	ErrMessageNotFound  = 2006
	ErrReconnectFailed  = 2007

	// Connection errors (3000-3999)
	ErrConnection   = 3000
	ErrStreamClosed = 3001
	ErrHealthCheck  = 3002

	// Stream decode errors (6000-6999)
	ErrDecode       = 6000
	ErrPayloadShape = 6001
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer: {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:  {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:       {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:   {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrBadRequest:     {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail: {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},
	ErrCancelled:      {ErrCancelled, 499, "Operation cancelled"},

	// Session errors
	ErrSession:          {ErrSession, http.StatusBadGateway, "Agent server request failed"},
	ErrSessionNotFound:  {ErrSessionNotFound, http.StatusNotFound, "Session not found"},
	ErrProjectNotFound:  {ErrProjectNotFound, http.StatusNotFound, "Project not found on server"},
	ErrNotConnected:     {ErrNotConnected, http.StatusConflict, "Session not connected"},
	ErrInvalidPendingID: {ErrInvalidPendingID, http.StatusBadRequest, "Optimistic message id must carry the pending prefix"},
	ErrEmptyMessage:     {ErrEmptyMessage, http.StatusBadRequest, "Message text is empty"},
	ErrMessageNotFound:  {ErrMessageNotFound, http.StatusNotFound, "Message not found"},
	ErrReconnectFailed:  {ErrReconnectFailed, http.StatusServiceUnavailable, "Reconnect attempts exhausted"},

	// Connection errors
	ErrConnection:   {ErrConnection, http.StatusBadGateway, "Connection lost"},
	ErrStreamClosed: {ErrStreamClosed, http.StatusBadGateway, "Event stream connection closed"},
	ErrHealthCheck:  {ErrHealthCheck, http.StatusServiceUnavailable, "Server health check failed"},

	// Stream decode errors
	ErrDecode:       {ErrDecode, http.StatusUnprocessableEntity, "Malformed event payload"},
	ErrPayloadShape: {ErrPayloadShape, http.StatusUnprocessableEntity, "Event payload has unexpected shape"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsServerError checks if the code represents a server error (5xx)
func IsServerError(code int) bool {
	return GetHTTPStatus(code) >= 500
}

// IsConnectionCode reports whether code belongs to the connection range
func IsConnectionCode(code int) bool {
	return code >= ErrConnection && code < 4000
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
