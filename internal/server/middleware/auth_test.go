package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ladderplan/ladderd/internal/crypto"
)

func authedStatus(t *testing.T, hash string, prepare func(*http.Request)) int {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/planners", nil)
	if prepare != nil {
		prepare(req)
	}
	rec := httptest.NewRecorder()
	Auth(hash)(next).ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthDisabledWhenNoHash(t *testing.T) {
	assert.Equal(t, http.StatusOK, authedStatus(t, "", nil))
}

func TestAuthAcceptsValidKey(t *testing.T) {
	hash, err := crypto.HashAPIKey("letmein")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, authedStatus(t, hash, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer letmein")
	}))
	assert.Equal(t, http.StatusOK, authedStatus(t, hash, func(r *http.Request) {
		r.Header.Set("X-API-Key", "letmein")
	}))
}

func TestAuthRejectsBadOrMissingKey(t *testing.T) {
	hash, err := crypto.HashAPIKey("letmein")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, authedStatus(t, hash, nil))
	assert.Equal(t, http.StatusUnauthorized, authedStatus(t, hash, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer wrong")
	}))
	assert.Equal(t, http.StatusUnauthorized, authedStatus(t, hash, func(r *http.Request) {
		r.Header.Set("Authorization", "Basic letmein")
	}))
}

func TestAuthRejectsMalformedHash(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, authedStatus(t, "not-a-hash", func(r *http.Request) {
		r.Header.Set("X-API-Key", "anything")
	}))
}
