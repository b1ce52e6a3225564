package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// apiError is one machine-readable error in a response body. Code is a
// stable identifier clients can switch on; Detail is for humans.
type apiError struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

type errorEnvelope struct {
	Errors []apiError `json:"errors"`
}

// WriteAPIError writes the standard error envelope with a single error.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	env := errorEnvelope{Errors: []apiError{{
		Code:   code,
		Status: strconv.Itoa(httpStatus),
		Detail: detail,
	}}}
	_ = json.NewEncoder(w).Encode(env)
}
