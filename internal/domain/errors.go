package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrInvalidPrice      = errors.New("price outside (0,1)")
	ErrInsufficientFunds = errors.New("insufficient bankroll")
	ErrBelowMinimum      = errors.New("stake below minimum trade size")
	ErrPositionExists    = errors.New("position already open for market")
	ErrNoPosition        = errors.New("no open position for market")
)
