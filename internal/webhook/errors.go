package webhook

import "errors"

var (
	// ErrVerificationMismatch indicates the handshake token does not match
	// the configured verify token.
	ErrVerificationMismatch = errors.New("webhook verification failed")
	// ErrMissingParameters indicates the handshake lacks hub.mode or
	// hub.verify_token.
	ErrMissingParameters = errors.New("missing verification parameters")
	// ErrMalformedBody indicates the POST body is not parseable JSON.
	ErrMalformedBody = errors.New("malformed event body")
	// ErrNotAPlatformEvent indicates the POST body lacks the platform's
	// top-level object marker.
	ErrNotAPlatformEvent = errors.New("not a whatsapp api event")
	// ErrNotAnEvent is the benign outcome for well-formed deliveries that
	// carry no user message, e.g. delivery-status callbacks. Not an error
	// to escalate: the platform must not retry these.
	ErrNotAnEvent = errors.New("delivery carries no message")
)
