package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody represents the error payload returned by the API.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, ErrorBody{
		Message: message,
		Code:    code,
		Details: details,
	})
}

// JSONInternal renders a 500 response that carries the failure text in the error field.
func JSONInternal(w http.ResponseWriter, message string, err error) {
	body := ErrorBody{Message: message, Code: "INTERNAL"}
	if err != nil {
		body.Error = err.Error()
	}
	JSON(w, http.StatusInternalServerError, body)
}

// WriteAppError renders err using its AppError status and code when present.
func WriteAppError(w http.ResponseWriter, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		JSONInternal(w, "Internal Server Error", err)
		return
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		body := ErrorBody{Message: appErr.Message, Code: appErr.Code, Details: appErr.Details}
		if appErr.Err != nil {
			body.Error = appErr.Err.Error()
		}
		JSON(w, status, body)
		return
	}
	JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
}
