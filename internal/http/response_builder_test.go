package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Data(map[string]int{"id": 7}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := w.Body.String(); got != "{\"id\":7}\n" {
		t.Errorf("Body = %q", got)
	}
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().Status(http.StatusNoContent).Data("ignored").Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("204 must have an empty body, got %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_UnencodableData(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().Data(math.Inf(1)).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		code    int
		message string
	}{
		{"bad request", BadRequestError("malformed body"), http.StatusBadRequest, "malformed body"},
		{"not found", NotFoundError("no such route"), http.StatusNotFound, "no such route"},
		{"conflict", ConflictError("confirm"), http.StatusConflict, "confirm"},
		{"unprocessable", UnprocessableEntityError("invalid amount"), http.StatusUnprocessableEntity, "invalid amount"},
		{"rate limited", TooManyRequestsError(), http.StatusTooManyRequests, "rate limit exceeded, try again later"},
		{"internal", InternalServerError("could not save"), http.StatusInternalServerError, "could not save"},
		{"unavailable", ServiceUnavailableError("store"), http.StatusServiceUnavailable, "store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.code {
				t.Errorf("Status code = %d, want %d", w.Code, tt.code)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if body.Error != tt.message {
				t.Errorf("error = %q, want %q", body.Error, tt.message)
			}
		})
	}
}
