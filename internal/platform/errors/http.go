package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Response is the JSON body returned for failed requests.
type Response struct {
	Code     Code              `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HandleError writes a domain error as an HTTP response.
// Unknown errors are masked behind a generic internal failure.
func HandleError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		writeResponse(w, appErr.Code.HTTPStatus(), Response{
			Code:     appErr.Code,
			Message:  appErr.Message,
			Metadata: appErr.Metadata,
		})
		return
	}

	writeResponse(w, http.StatusInternalServerError, Response{
		Code:    CodeUnknown,
		Message: "an unexpected error occurred",
	})
}

func writeResponse(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetMetadata extracts metadata from an error if present.
// Returns nil if the error is not a domain error or has no metadata.
func GetMetadata(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}
