// Package transcribe adapts decoded waveforms to the speech-to-text
// endpoint.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wabridge/wabridge/internal/audio"
)

// transcriptionAPI is the slice of the OpenAI client the adapter needs.
type transcriptionAPI interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// wavRenderer turns decoded audio back into a WAV container for upload.
type wavRenderer interface {
	EncodeWAV(decoded audio.DecodedAudio) ([]byte, error)
}

// Transcriber sends decoded voice notes to the Whisper endpoint and
// returns the recognized utterance in its spoken language.
type Transcriber struct {
	logger   *slog.Logger
	client   transcriptionAPI
	renderer wavRenderer
	model    string
}

// NewTranscriber builds a Transcriber for the given Whisper model. An
// empty baseURL targets the public OpenAI endpoint; a positive timeout
// bounds every upload.
func NewTranscriber(log *slog.Logger, apiKey, baseURL, model string, timeout time.Duration, renderer wavRenderer) *Transcriber {
	if log == nil {
		log = slog.Default()
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &Transcriber{
		logger:   log.With(slog.String("service", "transcribe")),
		client:   openai.NewClientWithConfig(clientCfg),
		renderer: renderer,
		model:    model,
	}
}

// Transcribe uploads the waveform and returns the transcript text. Any
// engine failure or an empty transcript maps to ErrRecognitionFailed;
// callers report it, they do not retry.
func (t *Transcriber) Transcribe(ctx context.Context, decoded audio.DecodedAudio) (string, error) {
	if len(decoded.Samples) == 0 {
		return "", fmt.Errorf("%w: empty waveform", ErrRecognitionFailed)
	}
	wavBytes, err := t.renderer.EncodeWAV(decoded)
	if err != nil {
		return "", fmt.Errorf("%w: render wav: %v", ErrRecognitionFailed, err)
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: "voice-note.wav",
		Reader:   bytes.NewReader(wavBytes),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: engine returned no text", ErrRecognitionFailed)
	}
	t.logger.Debug("transcribed voice note", slog.Int("chars", len(text)))
	return text, nil
}
