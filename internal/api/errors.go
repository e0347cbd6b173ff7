package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/geocontrol/internal/auth"
	"github.com/nerrad567/geocontrol/internal/measurement"
	"github.com/nerrad567/geocontrol/internal/network"
)

// Error is the body of every error response.
type Error struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Error names, one per status code the API returns.
const (
	ErrNameBadRequest         = "Bad Request"
	ErrNameUnauthorized       = "UnauthorizedError"
	ErrNameForbidden          = "InsufficientRightsError"
	ErrNameNotFound           = "NotFoundError"
	ErrNameMethodNotAllowed   = "MethodNotAllowedError"
	ErrNameConflict           = "ConflictError"
	ErrNameRequestTooLarge    = "PayloadTooLargeError"
	ErrNameTooManyRequests    = "TooManyRequestsError"
	ErrNameInternal           = "InternalServerError"
	ErrNameServiceUnavailable = "ServiceUnavailableError"
)

func errorName(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrNameBadRequest
	case http.StatusUnauthorized:
		return ErrNameUnauthorized
	case http.StatusForbidden:
		return ErrNameForbidden
	case http.StatusNotFound:
		return ErrNameNotFound
	case http.StatusMethodNotAllowed:
		return ErrNameMethodNotAllowed
	case http.StatusConflict:
		return ErrNameConflict
	case http.StatusRequestEntityTooLarge:
		return ErrNameRequestTooLarge
	case http.StatusTooManyRequests:
		return ErrNameTooManyRequests
	case http.StatusServiceUnavailable:
		return ErrNameServiceUnavailable
	default:
		return ErrNameInternal
	}
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Error{
		Code:    status,
		Name:    errorName(status),
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, message)
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, network.ErrNetworkNotFound),
		errors.Is(err, network.ErrGatewayNotFound),
		errors.Is(err, network.ErrSensorNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, network.ErrNetworkExists),
		errors.Is(err, network.ErrGatewayExists),
		errors.Is(err, network.ErrSensorExists),
		errors.Is(err, auth.ErrUsernameExists):
		return http.StatusConflict
	case errors.Is(err, network.ErrInvalidCode),
		errors.Is(err, network.ErrInvalidMAC),
		errors.Is(err, measurement.ErrInvalidMeasurement),
		errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes the response for an error returned by a
// repository or the measurement service. Unexpected errors are logged with
// the request id and hidden from the client.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed",
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
		writeInternalError(w, op+" failed")
		return
	}
	writeError(w, status, err.Error())
}
