package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrLockHeld          = errors.New("lock already held")
	ErrPriceUnavailable  = errors.New("price unavailable")
	ErrMissingDateColumn = errors.New("feed schema has no Traded or Date column")
	ErrZeroQuantity      = errors.New("order quantity truncates to zero")
	ErrInvalidOrder      = errors.New("invalid order parameters")
	ErrCorruptState      = errors.New("stored state is corrupt")
)
