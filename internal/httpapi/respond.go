package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/obs"
)

const (
	codeInternal     = "internal"
	codeInvalidBody  = "invalidBody"
	codeNotFound     = "notFound"
	codeRateLimited  = "rateLimited"
	codeNotAllowed   = "methodNotAllowed"
	codeBadRequest   = "badRequest"
	codeUnauthorized = "unauthorized"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Fields    []auth.FieldError `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     code,
		Message:   msg,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeError maps domain errors onto HTTP statuses. Anything unclassified is
// logged and reported as internal.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{RequestID: middleware.GetReqID(r.Context())}
	var status int
	switch {
	case errors.Is(err, auth.ErrValidation), errors.Is(err, auth.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, auth.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrConflict):
		status = http.StatusConflict
	default:
		obs.Logger().Error().Err(err).
			Str("request_id", resp.RequestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request_failed")
		resp.Error = codeInternal
		resp.Message = "internal error"
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	var ae *auth.Error
	if errors.As(err, &ae) {
		resp.Error = ae.Code
		resp.Fields = ae.Fields
	}
	if resp.Error == "" {
		resp.Error = fallbackCode(status)
	}
	resp.Message = err.Error()
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, resp)
}

func fallbackCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusUnauthorized:
		return codeUnauthorized
	case http.StatusForbidden:
		return auth.CodeForbidden
	case http.StatusConflict:
		return "conflict"
	}
	return codeBadRequest
}

// decodeJSON reads a single JSON document. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return invalidBody("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return invalidBody("request body too large")
		}
		return invalidBody(err.Error())
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return invalidBody("unexpected data after JSON body")
	}
	return nil
}

func invalidBody(msg string) error {
	return &auth.Error{Kind: auth.ErrBadRequest, Code: codeInvalidBody, Message: msg}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, r, http.StatusMethodNotAllowed, codeNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, r, http.StatusNotFound, codeNotFound, "resource not found")
}
