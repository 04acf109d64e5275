// Package whatsapp is the Graph API client: media resolution and outbound
// message delivery for the WhatsApp Cloud platform.
package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to the Graph API with a single bearer credential and a
// fixed API version.
type Client struct {
	logger     *slog.Logger
	http       *resty.Client
	baseURL    string
	apiVersion string
}

// NewClient builds a Graph API client. baseURL is the API root without a
// version segment (https://graph.facebook.com in production).
func NewClient(log *slog.Logger, baseURL, apiVersion, accessToken string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	httpClient := resty.New().
		SetAuthToken(accessToken).
		SetTimeout(timeout)
	return &Client{
		logger:     log.With(slog.String("service", "whatsapp")),
		http:       httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
	}
}

type mediaMetadata struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// ResolveMediaURL looks up the fetch URL behind an opaque media id.
func (c *Client) ResolveMediaURL(ctx context.Context, mediaID string) (string, error) {
	var meta mediaMetadata
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&meta).
		Get(fmt.Sprintf("%s/%s/%s/", c.baseURL, c.apiVersion, mediaID))
	if err != nil {
		return "", fmt.Errorf("%w: metadata lookup: %v", ErrMediaUnavailable, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: metadata lookup returned %s", ErrMediaUnavailable, resp.Status())
	}
	if strings.TrimSpace(meta.URL) == "" {
		return "", fmt.Errorf("%w: metadata response has no url", ErrMediaUnavailable)
	}
	c.logger.Debug("resolved media url",
		slog.String("media_id", mediaID),
		slog.String("mime_type", meta.MimeType))
	return meta.URL, nil
}

// Download fetches the raw media bytes from a resolved URL with the same
// bearer credential.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", ErrMediaUnavailable, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: fetch returned %s", ErrMediaUnavailable, resp.Status())
	}
	return resp.Body(), nil
}

type textPayload struct {
	Body string `json:"body"`
}

type sendMessageRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textPayload `json:"text"`
}

// SendText posts a text message to the recipient through the business
// phone number the inbound event arrived on.
func (c *Client) SendText(ctx context.Context, phoneNumberID, to, body string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{
			MessagingProduct: "whatsapp",
			To:               to,
			Type:             "text",
			Text:             textPayload{Body: body},
		}).
		Post(fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, phoneNumberID))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: platform returned %s", ErrDeliveryFailed, resp.Status())
	}
	c.logger.Debug("delivered reply", slog.String("to", to))
	return nil
}
