package dispatch

// Kind classifies an inbound payload.
type Kind string

const (
	KindText  Kind = "text"
	KindAudio Kind = "audio"
)

// InboundEvent is the normalized shape of one webhook delivery.
// Transient: built per request, discarded after dispatch.
type InboundEvent struct {
	// Sender is the originating phone-number-like id.
	Sender string
	// PhoneNumberID is the business number the event arrived on; replies
	// are routed back through it.
	PhoneNumberID string
	Kind          Kind
	// Text carries the message body for KindText.
	Text string
	// MediaID carries the opaque voice-note reference for KindAudio.
	MediaID string
}

// OutboundReply is the final reply for one inbound event. Transient:
// consumed by the notifier and discarded.
type OutboundReply struct {
	Recipient     string
	PhoneNumberID string
	Text          string
}
