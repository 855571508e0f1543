package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail bool
	}{
		{err: fmt.Errorf("order 4: %w", ErrNotFound), status: http.StatusNotFound, detail: true},
		{err: ErrDuplicate, status: http.StatusConflict, detail: true},
		{err: ErrValidation, status: http.StatusBadRequest, detail: true},
		{err: ErrConflict, status: http.StatusConflict, detail: true},
		{err: errors.New("pq: password authentication failed"), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)

		require.Equal(t, tc.status, rr.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		assert.Equal(t, tc.status, problem.Status)
		if tc.detail {
			assert.Equal(t, tc.err.Error(), problem.Detail)
		} else {
			assert.Empty(t, problem.Detail)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ROD"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "ROD", target.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ROD","extra":1}`))
	require.Error(t, DecodeJSON(req, &target))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("x", maxBodyBytes)+`"}`))
	require.Error(t, DecodeJSON(req, &target))
}
