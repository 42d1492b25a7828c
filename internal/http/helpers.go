package http

import (
	"errors"
	"net/http"
	"strings"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/store"
)

// sanitizeInput drops control characters except tab, newline and carriage
// return, then trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// writeError maps an error from parsing or the service to a JSON response.
// Store failures are logged with the request logger; their detail is never
// sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, services.ErrResetNotConfirmed):
		ConflictError(`reset requires {"confirm":"RESET"}`).Write(w)
	case core.IsValidationError(err):
		UnprocessableEntityError(validationMessage(err)).Write(w)
	case errors.Is(err, ErrInvalidParam):
		BadRequestError(err.Error()).Write(w)
	case errors.As(err, &maxBytes):
		ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
	case errors.Is(err, store.ErrWrite):
		logFailure(r, op, err)
		InternalServerError(store.ErrWrite.Error()).Write(w)
	default:
		logFailure(r, op, err)
		InternalServerError("internal error").Write(w)
	}
}

// writeBodyError is writeError for body decoding: anything that is not a
// validation failure is a malformed request.
func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError
	if core.IsValidationError(err) || errors.As(err, &maxBytes) {
		writeError(w, r, log.OpParse, err)
		return
	}
	BadRequestError("malformed request body: " + err.Error()).Write(w)
}

func validationMessage(err error) string {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidType,
		core.ErrEmptyCategory,
		core.ErrInvalidTimestamp,
		core.ErrRemarkTooLong,
		core.ErrInvalidID,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func logFailure(r *http.Request, op string, err error) {
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
		"Request failed", err, log.ComponentHTTP, op,
		log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
}
