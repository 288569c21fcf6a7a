package errors

import "net/http"

// ErrorCode represents the type of error
type ErrorCode string

const (
	// CodeConfiguration is a caller asking for something the contract does
	// not allow: an unknown group-by field, an unknown filter attribute.
	CodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeUnavailable   ErrorCode = "SERVICE_UNAVAILABLE"
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// StatusCodeMap maps ErrorCode to HTTP status code
var StatusCodeMap = map[ErrorCode]int{
	CodeConfiguration: http.StatusBadRequest,
	CodeValidation:    http.StatusUnprocessableEntity,
	CodeNotFound:      http.StatusNotFound,
	CodeTimeout:       http.StatusGatewayTimeout,
	CodeUnavailable:   http.StatusServiceUnavailable,
	CodeInternal:      http.StatusInternalServerError,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
