package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibe_server/models"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", models.NewValidationError("bad input"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unauthorized", models.NewUnauthorizedError("no token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"ownership", models.NewOwnershipError(), http.StatusForbidden, "OWNERSHIP_DENIED"},
		{"banned", models.NewBannedError(), http.StatusForbidden, "ACCOUNT_BANNED"},
		{"not found", models.NewNotFoundError("missing"), http.StatusNotFound, "NOT_FOUND"},
		{"capacity", models.NewCapacityError("full"), http.StatusConflict, "CAPACITY_EXCEEDED"},
		{"conflict", models.NewConflictError("raced"), http.StatusConflict, "CONFLICT"},
		{"storage", models.NewStorageError("boom", errors.New("inner")), http.StatusInternalServerError, "STORAGE_ERROR"},
		{"unclassified", errors.New("plain"), http.StatusInternalServerError, "STORAGE_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			WriteError(recorder, tc.err)

			assert.Equal(t, tc.wantStatus, recorder.Code)
			assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body["code"])
		})
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	recorder := httptest.NewRecorder()
	WriteError(recorder, models.NewStorageError("dynamo exploded", errors.New("secret detail")))

	assert.NotContains(t, recorder.Body.String(), "secret detail")
	assert.NotContains(t, recorder.Body.String(), "dynamo exploded")
	assert.Contains(t, recorder.Body.String(), "internal server error")
}

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"ok"}`))
	require.NoError(t, DecodeJSON(req, &payload))
	assert.Equal(t, "ok", payload.Name)

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{not json`))
	err := DecodeJSON(req, &payload)
	require.Error(t, err)
	assert.Equal(t, models.ErrValidation, models.KindOf(err))
}
