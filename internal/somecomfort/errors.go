package somecomfort

import (
	"errors"
	"fmt"
	"strings"
)

// siteDownSignature is the marker the portal leaves in a failed login when
// the site itself is broken rather than the credentials. A login response
// that sets no session cookie produces this message.
const siteDownSignature = "Null cookie"

// AuthError reports a rejected login.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "somecomfort: login failed: " + e.Message
}

// UnauthorizedError reports a request rejected because the session is no
// longer valid. It counts as an auth error for ladder purposes.
type UnauthorizedError struct {
	Op string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("somecomfort: %s: session unauthorized", e.Op)
}

// RateLimitError reports a 429 from the portal.
type RateLimitError struct {
	Op string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("somecomfort: %s: rate limited", e.Op)
}

// ConnectionError reports a network-level failure (dial, timeout, 5xx).
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("somecomfort: %s: connection failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// UnexpectedResponseError reports a response the client could not interpret.
type UnexpectedResponseError struct {
	Op     string
	Status int
	Detail string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("somecomfort: %s: unexpected response (status %d): %s", e.Op, e.Status, e.Detail)
}

// DeviceError reports a well-formed control request the device rejected.
type DeviceError struct {
	Op     string
	Detail string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("somecomfort: %s: device rejected request: %s", e.Op, e.Detail)
}

// IsAuthError reports whether err is any authentication rejection,
// including an invalidated session.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) || IsUnauthorized(err)
}

// IsUnauthorized reports whether err is an invalidated-session rejection.
func IsUnauthorized(err error) bool {
	var ue *UnauthorizedError
	return errors.As(err, &ue)
}

// IsTransient reports whether err is expected to self-resolve: timeouts,
// connection failures and rate limiting. Malformed responses are not
// transient here; the caller decides how to treat them.
func IsTransient(err error) bool {
	var ce *ConnectionError
	var re *RateLimitError
	return errors.As(err, &ce) || errors.As(err, &re)
}

// IsSiteDown reports whether an auth error carries the site-down signature
// rather than a genuine credential rejection.
func IsSiteDown(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && strings.Contains(ae.Message, siteDownSignature)
}
