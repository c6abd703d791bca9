// Package shared centralizes JSON response and domain-error translation so
// handlers stay thin.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "passgate/pkg/domain-errors"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Code        int    `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError translates a domain error into the wire response. Registry
// faults carry their stable numeric code; anything uncoded surfaces as a
// plain 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	description := "internal server error"
	var coded *dErrors.Error
	if errors.As(err, &coded) && coded.Code != dErrors.CodeInternal {
		description = coded.Message
	}

	body := errorBody{
		Error:       string(code),
		Description: description,
	}
	if wire, ok := code.Wire(); ok {
		body.Code = wire
	}
	WriteJSON(w, code.HTTPStatus(), body)
}
