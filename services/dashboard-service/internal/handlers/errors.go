package handlers

import (
	"errors"
	"net/http"

	"github.com/schoolvax/portal/services/dashboard-service/internal/service"
	"github.com/schoolvax/portal/services/dashboard-service/internal/upstream"
)

// ErrorResponse is the body of every failed dashboard request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Source  string `json:"source,omitempty"`
}

const (
	operationOverview = "overview"
	operationStats    = "stats"
)

var fallbackMessages = map[string]string{
	operationOverview: "Failed to fetch dashboard overview",
	operationStats:    "Failed to fetch dashboard statistics",
}

// classifyError maps an aggregation failure to a status code and body.
func classifyError(err error, operation string) (int, ErrorResponse) {
	if errors.Is(err, service.ErrMissingCredential) {
		return http.StatusUnauthorized, ErrorResponse{
			Error:   "Authorization header is required",
			Details: "Please provide a valid bearer token",
		}
	}

	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		switch upErr.Kind {
		case upstream.FailureConnectionRefused:
			return http.StatusServiceUnavailable, ErrorResponse{
				Error:   "Service unavailable",
				Details: "One or more services are currently unavailable",
				Source:  upErr.Upstream,
			}
		case upstream.FailureTimeout:
			return http.StatusGatewayTimeout, ErrorResponse{
				Error:   "Request timeout",
				Details: "Service request timed out",
				Source:  upErr.Upstream,
			}
		}
		return http.StatusInternalServerError, ErrorResponse{
			Error:   fallbackMessages[operation],
			Details: upErr.Err.Error(),
			Source:  upErr.Upstream,
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error:   fallbackMessages[operation],
		Details: err.Error(),
	}
}
