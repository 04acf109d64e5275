// Package dispatch sequences one inbound event through the audio
// pipeline, the conversation store, the completion service, and outbound
// delivery.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wabridge/wabridge/internal/audio"
	"github.com/wabridge/wabridge/internal/chat"
	"github.com/wabridge/wabridge/internal/conversation"
)

// audioPromptPrefix turns a raw voice transcript into a completion
// prompt. The wrapper is mandatory for audio payloads.
const audioPromptPrefix = "Please summarize the following message in its original language as a list of bullet-points: "

// MediaFetcher resolves an opaque media id to bytes in two authenticated
// calls.
type MediaFetcher interface {
	ResolveMediaURL(ctx context.Context, mediaID string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Decoder converts a compressed voice note into a decoded waveform.
type Decoder interface {
	Decode(data []byte) (audio.DecodedAudio, error)
}

// Transcriber produces text from a decoded waveform.
type Transcriber interface {
	Transcribe(ctx context.Context, decoded audio.DecodedAudio) (string, error)
}

// Completer returns the assistant reply for a full transcript.
type Completer interface {
	Complete(ctx context.Context, transcript []chat.Message) (string, error)
}

// Notifier delivers the reply back through the platform.
type Notifier interface {
	SendText(ctx context.Context, phoneNumberID, to, body string) error
}

// TurnStore serializes transcript access per sender.
type TurnStore interface {
	Turn(sender string, fn func(t *conversation.Transcript) error) error
}

// Dispatcher routes classified events through the processing pipeline.
type Dispatcher struct {
	logger      *slog.Logger
	media       MediaFetcher
	decoder     Decoder
	transcriber Transcriber
	store       TurnStore
	completer   Completer
	notifier    Notifier
}

// NewDispatcher wires the pipeline stages together.
func NewDispatcher(log *slog.Logger, media MediaFetcher, decoder Decoder, transcriber Transcriber, store TurnStore, completer Completer, notifier Notifier) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		logger:      log.With(slog.String("service", "dispatch")),
		media:       media,
		decoder:     decoder,
		transcriber: transcriber,
		store:       store,
		completer:   completer,
		notifier:    notifier,
	}
}

// Handle runs one full turn for the event and delivers the reply. Any
// stage failure aborts the pipeline; no partial reply is ever sent.
func (d *Dispatcher) Handle(ctx context.Context, event InboundEvent) (OutboundReply, error) {
	content, err := d.resolveContent(ctx, event)
	if err != nil {
		return OutboundReply{}, err
	}

	replyText, err := d.runTurn(ctx, event.Sender, content)
	if err != nil {
		return OutboundReply{}, err
	}

	reply := OutboundReply{
		Recipient:     event.Sender,
		PhoneNumberID: event.PhoneNumberID,
		Text:          replyText,
	}
	if err := d.notifier.SendText(ctx, reply.PhoneNumberID, reply.Recipient, reply.Text); err != nil {
		return OutboundReply{}, err
	}
	d.logger.Info("handled event",
		slog.String("sender", event.Sender),
		slog.String("kind", string(event.Kind)))
	return reply, nil
}

// resolveContent normalizes the payload to text. The audio branch runs
// entirely before any store mutation, so a failed voice note leaves the
// transcript untouched.
func (d *Dispatcher) resolveContent(ctx context.Context, event InboundEvent) (string, error) {
	switch event.Kind {
	case KindText:
		return event.Text, nil
	case KindAudio:
		url, err := d.media.ResolveMediaURL(ctx, event.MediaID)
		if err != nil {
			return "", err
		}
		data, err := d.media.Download(ctx, url)
		if err != nil {
			return "", err
		}
		decoded, err := d.decoder.Decode(data)
		if err != nil {
			return "", err
		}
		transcript, err := d.transcriber.Transcribe(ctx, decoded)
		if err != nil {
			return "", err
		}
		return audioPromptPrefix + transcript, nil
	default:
		return "", fmt.Errorf("unsupported event kind %q", event.Kind)
	}
}

// runTurn appends the user utterance and the assistant reply around one
// completion call, under the sender's turn lock. The completion request
// is computed from a snapshot and both appends commit only after it
// succeeds, so a failed completion leaves no dangling user turn.
func (d *Dispatcher) runTurn(ctx context.Context, sender, content string) (string, error) {
	var replyText string
	err := d.store.Turn(sender, func(t *conversation.Transcript) error {
		snapshot := make([]chat.Message, 0, t.Len()+1)
		snapshot = append(snapshot, t.Messages()...)
		snapshot = append(snapshot, chat.Message{Role: chat.RoleUser, Content: content})

		reply, err := d.completer.Complete(ctx, snapshot)
		if err != nil {
			return err
		}
		t.Append(chat.RoleUser, content)
		t.Append(chat.RoleAssistant, reply)
		replyText = reply
		return nil
	})
	if err != nil {
		return "", err
	}
	return replyText, nil
}
