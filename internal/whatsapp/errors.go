package whatsapp

import "errors"

var (
	// ErrMediaUnavailable indicates the media metadata lookup or the byte
	// fetch failed, or the metadata response carried no url.
	ErrMediaUnavailable = errors.New("media unavailable")
	// ErrDeliveryFailed indicates the platform rejected the outbound
	// message. Terminal for the request: no retry, no re-queue.
	ErrDeliveryFailed = errors.New("message delivery failed")
)
