package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompletionAPI struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeCompletionAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func newTestProvider(api *fakeCompletionAPI) *OpenAIProvider {
	p := NewOpenAIProvider(nil, "key", "", "gpt-3.5-turbo", 0.7, 0)
	p.client = api
	return p
}

func TestComplete_ReturnsTopChoice(t *testing.T) {
	t.Parallel()
	api := &fakeCompletionAPI{
		resp: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: RoleAssistant, Content: "Hello back"}},
				{Message: openai.ChatCompletionMessage{Role: RoleAssistant, Content: "second choice"}},
			},
		},
	}
	p := newTestProvider(api)

	transcript := []Message{
		{Role: RoleSystem, Content: "You are a helpful assistant."},
		{Role: RoleUser, Content: "Hello"},
	}
	reply, err := p.Complete(context.Background(), transcript)
	require.NoError(t, err)
	assert.Equal(t, "Hello back", reply)

	require.Len(t, api.req.Messages, 2)
	assert.Equal(t, "gpt-3.5-turbo", api.req.Model)
	assert.InDelta(t, 0.7, api.req.Temperature, 1e-6)
	assert.Equal(t, RoleUser, api.req.Messages[1].Role)
}

func TestComplete_APIError(t *testing.T) {
	t.Parallel()
	p := newTestProvider(&fakeCompletionAPI{err: errors.New("upstream 500")})

	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestComplete_NoChoices(t *testing.T) {
	t.Parallel()
	p := newTestProvider(&fakeCompletionAPI{})

	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestComplete_HonorsConfiguredTimeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"late"}}]}`))
	}))
	t.Cleanup(srv.Close)

	p := NewOpenAIProvider(nil, "key", srv.URL+"/v1", "gpt-3.5-turbo", 0.7, 50*time.Millisecond)
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrCompletionFailed)
}
