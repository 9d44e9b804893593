package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/groundstation/gsd/internal/session"
	"github.com/groundstation/gsd/internal/telemetry"
)

// ConnectStatus maps a controller error to the HTTP status of the connect ack.
func ConnectStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, session.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrLinkFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ToAPIError converts a stream setup error to an HTTP status code and envelope body.
func ToAPIError(err error) (int, []byte) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case errors.Is(err, telemetry.ErrHubStopped):
		return http.StatusServiceUnavailable, marshalErrorResponse("UNAVAILABLE", "Server is shutting down", nil)
	case errors.Is(err, telemetry.ErrStreamingUnsupported):
		return http.StatusInternalServerError, marshalErrorResponse("INTERNAL", "Streaming not supported by connection", nil)
	default:
		return http.StatusInternalServerError, marshalErrorResponse("INTERNAL", "Internal server error", map[string]interface{}{
			"original": err.Error(),
		})
	}
}

// marshalErrorResponse creates a JSON error envelope with correlation ID.
func marshalErrorResponse(code, message string, details interface{}) []byte {
	jsonBytes, err := json.Marshal(ErrorResponse(code, message, details))
	if err != nil {
		fallback := map[string]interface{}{
			"result":        "error",
			"code":          "INTERNAL",
			"message":       "Failed to marshal error response",
			"correlationId": generateCorrelationID(),
		}
		jsonBytes, _ := json.Marshal(fallback)
		return jsonBytes
	}

	return jsonBytes
}
