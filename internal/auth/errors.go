package auth

import "errors"

var (
	ErrHashing       = errors.New("unable to hash password")
	ErrMissingSecret = errors.New("token signing secret is not set")
	ErrInvalidTTL    = errors.New("token lifetime must be positive")

	// ErrExpiredToken is returned for a well-signed token past its expiry.
	ErrExpiredToken = errors.New("token is expired")
	// ErrInvalidToken covers every other verification failure: bad signature,
	// unexpected algorithm, malformed structure or a missing claim.
	ErrInvalidToken = errors.New("token is invalid")
)
