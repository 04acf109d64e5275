package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wabridge/wabridge/internal/audio"
	"github.com/wabridge/wabridge/internal/chat"
	"github.com/wabridge/wabridge/internal/conversation"
	"github.com/wabridge/wabridge/internal/dispatch"
	"github.com/wabridge/wabridge/internal/transcribe"
	"github.com/wabridge/wabridge/internal/whatsapp"
)

const systemPrompt = "You are a helpful assistant."

type fakeMedia struct {
	resolveErr  error
	downloadErr error
	resolved    []string
	data        []byte
}

func (f *fakeMedia) ResolveMediaURL(ctx context.Context, mediaID string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	f.resolved = append(f.resolved, mediaID)
	return "https://media.example/" + mediaID, nil
}

func (f *fakeMedia) Download(ctx context.Context, url string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.data, nil
}

type fakeDecoder struct {
	err     error
	decoded audio.DecodedAudio
}

func (f *fakeDecoder) Decode(data []byte) (audio.DecodedAudio, error) {
	if f.err != nil {
		return audio.DecodedAudio{}, f.err
	}
	return f.decoded, nil
}

type fakeTranscriber struct {
	err  error
	text string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, decoded audio.DecodedAudio) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeCompleter struct {
	err      error
	reply    string
	requests [][]chat.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, transcript []chat.Message) (string, error) {
	snapshot := make([]chat.Message, len(transcript))
	copy(snapshot, transcript)
	f.requests = append(f.requests, snapshot)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeNotifier struct {
	err  error
	sent []dispatch.OutboundReply
}

func (f *fakeNotifier) SendText(ctx context.Context, phoneNumberID, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, dispatch.OutboundReply{Recipient: to, PhoneNumberID: phoneNumberID, Text: body})
	return nil
}

type fixture struct {
	media       *fakeMedia
	decoder     *fakeDecoder
	transcriber *fakeTranscriber
	completer   *fakeCompleter
	notifier    *fakeNotifier
	store       *conversation.Store
	dispatcher  *dispatch.Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		media:       &fakeMedia{data: []byte("opus-bytes")},
		decoder:     &fakeDecoder{decoded: audio.DecodedAudio{Samples: []int{1, 2, 3}, SampleRate: 48000, SampleWidth: 4}},
		transcriber: &fakeTranscriber{text: "remember the milk"},
		completer:   &fakeCompleter{reply: "Sure thing."},
		notifier:    &fakeNotifier{},
		store:       conversation.NewStore(nil, systemPrompt),
	}
	f.dispatcher = dispatch.NewDispatcher(nil, f.media, f.decoder, f.transcriber, f.store, f.completer, f.notifier)
	return f
}

func textEvent(sender, body string) dispatch.InboundEvent {
	return dispatch.InboundEvent{Sender: sender, PhoneNumberID: "phone-1", Kind: dispatch.KindText, Text: body}
}

func audioEvent(sender, mediaID string) dispatch.InboundEvent {
	return dispatch.InboundEvent{Sender: sender, PhoneNumberID: "phone-1", Kind: dispatch.KindAudio, MediaID: mediaID}
}

func TestHandle_TextEndToEnd(t *testing.T) {
	t.Parallel()
	f := newFixture()

	reply, err := f.dispatcher.Handle(context.Background(), textEvent("15551234", "Hello"))
	require.NoError(t, err)
	assert.Equal(t, dispatch.OutboundReply{Recipient: "15551234", PhoneNumberID: "phone-1", Text: "Sure thing."}, reply)

	messages, ok := f.store.Peek("15551234")
	require.True(t, ok)
	require.Len(t, messages, 3)
	assert.Equal(t, chat.Message{Role: chat.RoleSystem, Content: systemPrompt}, messages[0])
	assert.Equal(t, chat.Message{Role: chat.RoleUser, Content: "Hello"}, messages[1])
	assert.Equal(t, chat.Message{Role: chat.RoleAssistant, Content: "Sure thing."}, messages[2])

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, reply, f.notifier.sent[0])
}

func TestHandle_CompletionSeesPendingUserTurn(t *testing.T) {
	t.Parallel()
	f := newFixture()

	_, err := f.dispatcher.Handle(context.Background(), textEvent("15551234", "Hello"))
	require.NoError(t, err)

	require.Len(t, f.completer.requests, 1)
	sent := f.completer.requests[0]
	require.Len(t, sent, 2)
	assert.Equal(t, chat.RoleSystem, sent[0].Role)
	assert.Equal(t, chat.Message{Role: chat.RoleUser, Content: "Hello"}, sent[1])
}

func TestHandle_AudioWrapsTranscriptInPrompt(t *testing.T) {
	t.Parallel()
	f := newFixture()

	_, err := f.dispatcher.Handle(context.Background(), audioEvent("15551234", "media-42"))
	require.NoError(t, err)

	assert.Equal(t, []string{"media-42"}, f.media.resolved)
	require.Len(t, f.completer.requests, 1)
	userTurn := f.completer.requests[0][1]
	assert.Equal(t,
		"Please summarize the following message in its original language as a list of bullet-points: remember the milk",
		userTurn.Content)
}

func TestHandle_TurnOrderingOverManyEvents(t *testing.T) {
	t.Parallel()
	f := newFixture()

	const n = 4
	for i := 0; i < n; i++ {
		_, err := f.dispatcher.Handle(context.Background(), textEvent("sender", "turn"))
		require.NoError(t, err)
	}

	messages, ok := f.store.Peek("sender")
	require.True(t, ok)
	require.Len(t, messages, 1+2*n)
	assert.Equal(t, chat.RoleSystem, messages[0].Role)
	for i := 1; i < len(messages); i += 2 {
		assert.Equal(t, chat.RoleUser, messages[i].Role)
		assert.Equal(t, chat.RoleAssistant, messages[i+1].Role)
	}
}

func TestHandle_TranscriptionFailureLeavesStoreUntouched(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.transcriber.err = transcribe.ErrRecognitionFailed

	_, err := f.dispatcher.Handle(context.Background(), audioEvent("15551234", "media-42"))
	require.ErrorIs(t, err, transcribe.ErrRecognitionFailed)

	_, ok := f.store.Peek("15551234")
	assert.False(t, ok, "failed audio pipeline must not touch the store")
	assert.Empty(t, f.notifier.sent)
}

func TestHandle_MediaFailurePropagates(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.media.resolveErr = whatsapp.ErrMediaUnavailable

	_, err := f.dispatcher.Handle(context.Background(), audioEvent("15551234", "media-42"))
	require.ErrorIs(t, err, whatsapp.ErrMediaUnavailable)
	assert.Empty(t, f.completer.requests)
}

func TestHandle_CompletionFailureLeavesNoDanglingUserTurn(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.completer.err = chat.ErrCompletionFailed

	_, err := f.dispatcher.Handle(context.Background(), textEvent("15551234", "Hello"))
	require.ErrorIs(t, err, chat.ErrCompletionFailed)

	messages, ok := f.store.Peek("15551234")
	require.True(t, ok)
	assert.Len(t, messages, 1, "only the system seed should remain")
	assert.Empty(t, f.notifier.sent)
}

func TestHandle_DeliveryFailurePropagates(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.notifier.err = whatsapp.ErrDeliveryFailed

	_, err := f.dispatcher.Handle(context.Background(), textEvent("15551234", "Hello"))
	require.ErrorIs(t, err, whatsapp.ErrDeliveryFailed)

	// The turn committed before delivery was attempted.
	messages, ok := f.store.Peek("15551234")
	require.True(t, ok)
	assert.Len(t, messages, 3)
}
