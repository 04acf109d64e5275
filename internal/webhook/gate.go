// Package webhook validates the platform handshake and classifies inbound
// deliveries into dispatchable events.
package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/wabridge/wabridge/internal/dispatch"
)

// Verify checks a subscription handshake and returns the challenge to
// echo back. Mode and token must be present; mode must be "subscribe"
// and token must equal expected.
func Verify(mode, token, challenge, expected string) (string, error) {
	if mode == "" || token == "" {
		return "", ErrMissingParameters
	}
	if mode != "subscribe" || token != expected {
		return "", ErrVerificationMismatch
	}
	return challenge, nil
}

type envelope struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value *struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Audio struct {
						ID string `json:"id"`
					} `json:"audio"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// Classify inspects a raw POST body. It returns ErrMalformedBody when the
// body is not JSON, ErrNotAPlatformEvent when the top-level object marker
// is absent, ErrNotAnEvent when any of entry/changes/value/messages is
// missing or the message type is unsupported, and a populated
// InboundEvent otherwise.
func Classify(raw []byte) (dispatch.InboundEvent, error) {
	var body envelope
	if err := json.Unmarshal(raw, &body); err != nil {
		return dispatch.InboundEvent{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if body.Object == "" {
		return dispatch.InboundEvent{}, ErrNotAPlatformEvent
	}
	if len(body.Entry) == 0 || len(body.Entry[0].Changes) == 0 {
		return dispatch.InboundEvent{}, ErrNotAnEvent
	}
	value := body.Entry[0].Changes[0].Value
	if value == nil || len(value.Messages) == 0 {
		return dispatch.InboundEvent{}, ErrNotAnEvent
	}

	msg := value.Messages[0]
	event := dispatch.InboundEvent{
		Sender:        msg.From,
		PhoneNumberID: value.Metadata.PhoneNumberID,
	}
	switch msg.Type {
	case "text":
		event.Kind = dispatch.KindText
		event.Text = msg.Text.Body
	case "audio":
		event.Kind = dispatch.KindAudio
		event.MediaID = msg.Audio.ID
	default:
		return dispatch.InboundEvent{}, fmt.Errorf("%w: unsupported type %q", ErrNotAnEvent, msg.Type)
	}
	return event, nil
}
