package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "kycflow/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("validation error carries fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.WithFields(dErrors.CodeValidation, []dErrors.FieldError{
			{Field: "pincode", Message: "must be exactly 6 digits"},
		}))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body struct {
			Error  string               `json:"error"`
			Fields []dErrors.FieldError `json:"fields"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Error != "validation_error" {
			t.Fatalf("expected validation_error, got %q", body.Error)
		}
		if len(body.Fields) != 1 || body.Fields[0].Field != "pincode" {
			t.Fatalf("expected pincode field error, got %+v", body.Fields)
		}
	})

	t.Run("plain errors become internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, http.ErrHandlerTimeout)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeDocumentRejected:      http.StatusUnprocessableEntity,
		dErrors.CodeIncompleteApplication: http.StatusConflict,
		dErrors.CodeInvalidState:          http.StatusConflict,
		dErrors.CodeNotFound:              http.StatusNotFound,
		dErrors.CodeUnauthorized:          http.StatusUnauthorized,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		City string `json:"city"`
	}

	t.Run("rejects unknown fields", func(t *testing.T) {
		var p payload
		err := DecodeJSON(strings.NewReader(`{"city":"Pune","zip":"1"}`), &p)
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %v", err)
		}
	})

	t.Run("rejects empty body", func(t *testing.T) {
		var p payload
		err := DecodeJSON(strings.NewReader(``), &p)
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %v", err)
		}
	})

	t.Run("rejects trailing objects", func(t *testing.T) {
		var p payload
		err := DecodeJSON(strings.NewReader(`{"city":"Pune"}{"city":"Goa"}`), &p)
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %v", err)
		}
	})

	t.Run("decodes known fields", func(t *testing.T) {
		var p payload
		if err := DecodeJSON(strings.NewReader(`{"city":"Pune"}`), &p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.City != "Pune" {
			t.Fatalf("expected Pune, got %q", p.City)
		}
	})
}
