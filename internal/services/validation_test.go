package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeStrict(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("single object decodes", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a"}`))
		w := httptest.NewRecorder()

		var dst payload
		err := DecodeStrict(w, r, &dst)
		assert.NoError(t, err)
		assert.Equal(t, "a", dst.Name)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a","admin":true}`))
		w := httptest.NewRecorder()

		var dst payload
		assert.Error(t, DecodeStrict(w, r, &dst))
	})

	t.Run("trailing data is rejected", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))
		w := httptest.NewRecorder()

		var dst payload
		assert.Error(t, DecodeStrict(w, r, &dst))
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		big := `{"name":"` + strings.Repeat("x", 2*1024*1024) + `"}`
		r := httptest.NewRequest("POST", "/", strings.NewReader(big))
		w := httptest.NewRecorder()

		var dst payload
		assert.Error(t, DecodeStrict(w, r, &dst))
	})

	t.Run("raised limit admits the same body", func(t *testing.T) {
		big := `{"name":"` + strings.Repeat("x", 2*1024*1024) + `"}`
		r := httptest.NewRequest("POST", "/", strings.NewReader(big))
		w := httptest.NewRecorder()

		var dst payload
		assert.NoError(t, DecodeStrictLimit(w, r, &dst, 4*1024*1024))
		assert.Len(t, dst.Name, 2*1024*1024)
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("plain error has no details", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())
	})

	t.Run("validation errors expand per field", func(t *testing.T) {
		vh := NewValidationHelper()
		err := vh.ValidateStruct(&LoginRequest{Email: "nope", Password: "short"})
		assert.Error(t, err)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)

		var resp ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "Validation failed", resp.Error)
		assert.Contains(t, resp.Details, "Email")
		assert.Contains(t, resp.Details, "Password")
	})
}

func TestSendJSON(t *testing.T) {
	w := httptest.NewRecorder()
	SendJSON(w, http.StatusCreated, map[string]string{"message": "ok"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"ok"}`, w.Body.String())
}
