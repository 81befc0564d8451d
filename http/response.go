package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/messages"
	"github.com/segmentio/encoding/json"
)

// WriteJSON writes v as the JSON body of the response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logs.WithTag("status", status).Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

// WriteError writes an error response matching the given code.
func WriteError(w http.ResponseWriter, code messages.ErrorCode, err error) {
	res := messages.ErrorResponse{Code: code}
	if err != nil {
		res.Message = err.Error()
	}

	WriteJSON(w, statusFromErrorCode(code), res)
}

func statusFromErrorCode(code messages.ErrorCode) int {
	switch code {
	case messages.ErrorCodeBadRequest:
		return http.StatusBadRequest
	case messages.ErrorCodeNotFound:
		return http.StatusNotFound
	case messages.ErrorCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
