package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeMalformedMessage      = "MALFORMED_PROTOCOL_MESSAGE"
	TextCodePayloadTooLarge       = "ENVELOPE_PAYLOAD_TOO_LARGE"
	TextCodeInvalidLoginState     = "INVALID_LOGIN_STATE"
	TextCodeExpiredLoginState     = "EXPIRED_LOGIN_STATE"
	TextCodeAuthenticationFailed  = "AUTHENTICATION_FAILED"
	TextCodeAccountCreationFailed = "ACCOUNT_CREATION_FAILED"
)

// ErrMalformedMessage is returned when a protocol blob fails decoding or its
// length gate, before it ever reaches the aPAKE engine.
var ErrMalformedMessage = goerrors.New("malformed protocol message", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMalformedMessage)

// ErrPayloadTooLarge signals an envelope sizing misconfiguration. Operator
// visible, never a request error.
var ErrPayloadTooLarge = goerrors.New("login state payload exceeds pad target", goerrors.CategoryInternal).
	WithTextCode(TextCodePayloadTooLarge)

// ErrInvalidLoginState covers every decrypt/parse failure of a sealed login
// state. Deliberately one error for tampered, wrong-key, and garbage input.
var ErrInvalidLoginState = goerrors.New("invalid login state", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidLoginState)

// ErrExpiredLoginState is returned when a sealed login state is past its
// lifetime window.
var ErrExpiredLoginState = goerrors.New("expired login state", goerrors.CategoryAuth).
	WithTextCode(TextCodeExpiredLoginState)

// ErrAuthenticationFailed is the one failure a login-complete caller sees:
// wrong password, unknown account, and stale or invalid login state all
// collapse into it.
var ErrAuthenticationFailed = goerrors.New("authentication failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationFailed)

// ErrAccountCreationFailed wraps storage failures during registration
// completion. Not retried here; retry policy belongs to the caller.
var ErrAccountCreationFailed = goerrors.New("account creation failed", goerrors.CategoryInternal).
	WithTextCode(TextCodeAccountCreationFailed)

// HasTextCode reports whether err, or anything it wraps, carries the given
// text code.
func HasTextCode(err error, code string) bool {
	for err != nil {
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			return false
		}

		if rich.TextCode == code {
			return true
		}

		err = rich.Source
	}

	return false
}

// IsAuthenticationFailed checks for the generic login failure.
func IsAuthenticationFailed(err error) bool {
	return HasTextCode(err, TextCodeAuthenticationFailed)
}

// IsMalformedMessage checks for protocol blob validation failures.
func IsMalformedMessage(err error) bool {
	return HasTextCode(err, TextCodeMalformedMessage)
}
