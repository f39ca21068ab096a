package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteProblemFlattensExtensions(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteProblem(rr, ProblemDetail{
		Title:      "Access Denied",
		Status:     http.StatusForbidden,
		Extensions: map[string]any{"requiredModule": "lms", "title": "ignored"},
	})

	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "lms", body["requiredModule"])
	assert.Equal(t, "Access Denied", body["title"])
	assert.EqualValues(t, http.StatusForbidden, body["status"])
}

func TestRespondErrorMapsWrappedSentinels(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("auth: %w", ErrUnauthorized): http.StatusUnauthorized,
		ErrForbidden:                            http.StatusForbidden,
		ErrRateLimited:                          http.StatusTooManyRequests,
		fmt.Errorf("boom"):                      http.StatusInternalServerError,
	}
	for err, want := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, err)
		assert.Equal(t, want, rr.Code, err.Error())
	}
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, WantsJSON(req))
	req.Header.Set("Accept", "application/json")
	assert.True(t, WantsJSON(req))
}
