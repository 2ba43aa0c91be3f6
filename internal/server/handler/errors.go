package handler

import (
	"errors"
	"net/http"

	"github.com/ladderplan/ladderd/internal/domain"
)

// writeDomainError maps domain sentinel errors to HTTP status codes; anything
// unrecognized becomes a 500 with a generic body so internals do not leak.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrInvalidTrade), errors.Is(err, domain.ErrNoPlan), errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoConsensus):
		writeError(w, http.StatusServiceUnavailable, "price feed unavailable")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
