package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNoPlan        = errors.New("no plan configured")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNoConsensus   = errors.New("no price consensus")
	ErrLockHeld      = errors.New("lock already held")
	ErrInvalidTrade  = errors.New("invalid trade parameters")
)
