package platform

import (
	"net/http"
)

// classifyStatus maps an HTTP status code to an error kind. Transport-level
// failures (timeouts, refused connections) never reach this and are always
// transient.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorKindTransient
	case status >= 500:
		return ErrorKindTransient
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorKindCredential
	default:
		return ErrorKindRejected
	}
}
