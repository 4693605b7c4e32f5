package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondInternalError(rec)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrorResponse{Error: "internal server error", Code: CodeInternalError}, body)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"email":"a@b.co"}`, false},
		{"unknown field tolerated", `{"email":"a@b.co","extra":1}`, false},
		{"empty", ``, true},
		{"malformed", `{"email":`, true},
		{"two objects", `{"email":"a"}{"email":"b"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), r, &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@b.co", p.Email)
		})
	}
}

func TestValidate(t *testing.T) {
	type req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Untagged string `validate:"max=2"`
	}

	assert.NoError(t, Validate(req{Email: "a@b.co", Password: "x"}))

	err := Validate(req{Email: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid email address")
	assert.Contains(t, err.Error(), "password is required")

	err = Validate(req{Email: "a@b.co", Password: "x", Untagged: "long"})
	require.Error(t, err)
	assert.Equal(t, "untagged must be at most 2 characters", err.Error())
}
