// Package apperr maps coded errors onto HTTP responses.
//
// Errors are built with github.com/samber/oops and carry one of the codes
// below. Client-correctable codes (4xx) expose their message verbatim;
// everything else is reported with a generic message and logged in full.
package apperr

import (
	"net/http"

	"github.com/samber/oops"
	"go.uber.org/zap"
)

const (
	CodeValidation         = "VALIDATION"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeUserExists         = "USER_EXISTS"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenMalformed     = "TOKEN_MALFORMED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeConfiguration      = "CONFIGURATION"
	CodeInternal           = "INTERNAL"
)

const (
	msgInternal      = "Internal server error"
	msgConfiguration = "Server configuration error"
)

// Code returns the oops code carried by err, or CodeInternal when err is
// not coded.
func Code(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return CodeInternal
	}
	if code, ok := oopsErr.Code().(string); ok && code != "" {
		return code
	}
	return CodeInternal
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch Code(err) {
	case CodeValidation, CodeUserExists:
		return http.StatusBadRequest
	case CodeUnauthenticated, CodeTokenExpired, CodeTokenMalformed, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeUserNotFound:
		return http.StatusNotFound
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text that is safe to show to clients.
func Message(err error) string {
	switch Code(err) {
	case CodeConfiguration:
		return msgConfiguration
	case CodeInternal:
		return msgInternal
	}
	return err.Error()
}

// IsClientError reports whether err maps to a 4xx response.
func IsClientError(err error) bool {
	s := Status(err)
	return s >= 400 && s < 500
}

// Log writes err to logger with its code and oops context attached.
func Log(logger *zap.SugaredLogger, msg string, err error) {
	kv := []any{"err", err.Error(), "code", Code(err)}
	if oopsErr, ok := oops.AsOops(err); ok {
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			kv = append(kv, "context", ctx)
		}
	}
	logger.Errorw(msg, kv...)
}
