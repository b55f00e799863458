package server

import (
	"encoding/json"
	"errors"
	"net/http"

	cerrors "github.com/matzehuels/contractmap/pkg/errors"
	"github.com/matzehuels/contractmap/pkg/layout"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the error envelope.
type errorResponse struct {
	Error string       `json:"error"`
	Code  cerrors.Code `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: cerrors.UserMessage(err), Code: cerrors.GetCode(err)})
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, layout.ErrUnknownBody) {
		return http.StatusNotFound
	}
	switch cerrors.GetCode(err) {
	case cerrors.ErrCodeInvalidInput, cerrors.ErrCodeInvalidID, cerrors.ErrCodeInvalidKeyword:
		return http.StatusBadRequest
	case cerrors.ErrCodeNotFound:
		return http.StatusNotFound
	case cerrors.ErrCodeNotReachable, cerrors.ErrCodeInit:
		return http.StatusUnprocessableEntity
	case cerrors.ErrCodeViewClosed:
		return http.StatusGone
	case cerrors.ErrCodeLimit:
		return http.StatusTooManyRequests
	case cerrors.ErrCodeFetch, cerrors.ErrCodeNetwork:
		return http.StatusBadGateway
	case cerrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case cerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
