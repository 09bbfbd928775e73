package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────

var (
	// Session errors
	ErrSessionNotFound = errors.New("calculator session not found")

	// Input errors
	ErrUnknownIntensity  = errors.New("unknown play intensity")
	ErrUnknownBoostTier  = errors.New("unknown boost tier")
	ErrBoostIndexInvalid = errors.New("boost index out of range")

	// Economy table errors
	ErrEconomyInvalid = errors.New("economy tables are invalid")

	// Price feed errors
	ErrPriceUnavailable = errors.New("price feed returned no usable quote")
	ErrPriceThrottled   = errors.New("price feed request throttled")
	ErrPriceCircuitOpen = errors.New("price feed circuit open after repeated failures")
)
