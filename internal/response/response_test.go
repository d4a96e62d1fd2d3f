package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackhouse/service/internal/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]string{"id": "p1"}, "found it")

	env := decode(t, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "found it", env.ClientMessage)
	assert.Nil(t, env.Error)
}

func TestFailStatusCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   apperr.Kind
	}{
		{apperr.NotFoundf("no branch draft"), http.StatusNotFound, apperr.KindNotFound},
		{apperr.Conflictf("name taken"), http.StatusConflict, apperr.KindConflict},
		{apperr.Validationf("missing file"), http.StatusBadRequest, apperr.KindValidation},
		{apperr.Authf("not your project"), http.StatusForbidden, apperr.KindAuth},
		{errors.New("pg down"), http.StatusInternalServerError, apperr.KindUnknown},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		Fail(rec, tc.err)

		env := decode(t, rec)
		assert.Equal(t, tc.status, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, tc.kind, env.Error.Kind)
		assert.NotEmpty(t, env.ClientMessage)
	}
}

func TestFailUnknownHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, errors.New("dial tcp 10.0.0.4:5432: connection refused"))

	env := decode(t, rec)
	assert.Equal(t, "something went wrong", env.ClientMessage)
	// internal detail rides along as debug info only
	assert.Contains(t, env.Error.Details, "connection refused")
}
