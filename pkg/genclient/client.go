// Package genclient calls the text, image, and video generation endpoints.
// The server owns all conversational context; the client only threads the
// opaque session id through every call of a conversation.
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"frostgreet/pkg/domain"
)

const (
	// MaxImageBytes is the pre-flight cap on image uploads.
	MaxImageBytes = 5 << 20

	defaultTimeout = 30 * time.Second
	// Video generation runs for minutes, not seconds. The video client gets
	// its own, far looser timeout.
	defaultVideoTimeout = 10 * time.Minute
)

// ImageEncoding selects how image bytes travel to the server. Both are
// accepted by the API.
type ImageEncoding string

const (
	EncodingMultipart ImageEncoding = "multipart"
	EncodingBase64    ImageEncoding = "base64"
)

// Client calls the generation API over HTTP.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	videoClient   *http.Client
	imageEncoding ImageEncoding
}

// Option adjusts client construction.
type Option func(*Client)

// WithVideoTimeout overrides the long-running video request timeout.
func WithVideoTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.videoClient.Timeout = d
		}
	}
}

// WithImageEncoding selects multipart or inline base64 uploads.
func WithImageEncoding(enc ImageEncoding) Option {
	return func(c *Client) {
		if enc == EncodingMultipart || enc == EncodingBase64 {
			c.imageEncoding = enc
		}
	}
}

// NewClient constructs a generation client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: defaultTimeout},
		videoClient:   &http.Client{Timeout: defaultVideoTimeout},
		imageEncoding: EncodingMultipart,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type textRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type textResponse struct {
	Response string `json:"response"`
}

// GenerateText asks for a fresh greeting within the given conversation.
func (c *Client) GenerateText(ctx context.Context, message, sessionID string) (string, error) {
	return c.textCall(ctx, "/text/generate/", message, sessionID)
}

// RegenerateText refines the previous greeting. The same session id makes
// the server apply the accumulated conversation context.
func (c *Client) RegenerateText(ctx context.Context, refinement, sessionID string) (string, error) {
	return c.textCall(ctx, "/text/regenerate/", refinement, sessionID)
}

func (c *Client) textCall(ctx context.Context, path, message, sessionID string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyPrompt
	}
	body, err := json.Marshal(textRequest{Message: message, SessionID: sessionID})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out textResponse
	if err := c.do(c.httpClient, req, &out); err != nil {
		return "", err
	}
	if out.Response == "" {
		return "", &MalformedResponseError{Field: "response"}
	}
	return out.Response, nil
}

type videoResponse struct {
	VideoURL string `json:"video_url"`
}

// GenerateVideo submits a prompt and returns the URL of the hosted clip.
// Expect to wait: the call blocks until the server finishes rendering.
func (c *Client) GenerateVideo(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/video/generate/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out videoResponse
	if err := c.do(c.videoClient, req, &out); err != nil {
		return "", err
	}
	if out.VideoURL == "" {
		return "", &MalformedResponseError{Field: "video_url"}
	}
	return out.VideoURL, nil
}

func (c *Client) do(httpClient *http.Client, req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &MalformedResponseError{}
	}
	return nil
}

// Generate dispatches a request to the endpoint matching its kind.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Output, error) {
	switch req.Kind {
	case domain.KindText:
		text, err := c.GenerateText(ctx, req.Message, req.SessionID)
		if err != nil {
			return domain.Output{}, err
		}
		return domain.Output{Kind: domain.KindText, Text: text}, nil
	case domain.KindImage:
		if req.Image == nil {
			return domain.Output{}, fmt.Errorf("image request without payload")
		}
		res, err := c.GenerateImage(ctx, *req.Image)
		if err != nil {
			return domain.Output{}, err
		}
		return domain.Output{Kind: domain.KindImage, ImageBase64: res.Base64, ImageFormat: res.Format}, nil
	case domain.KindVideo:
		url, err := c.GenerateVideo(ctx, req.Message)
		if err != nil {
			return domain.Output{}, err
		}
		return domain.Output{Kind: domain.KindVideo, VideoURL: url}, nil
	default:
		return domain.Output{}, fmt.Errorf("unknown generation kind %q", req.Kind)
	}
}

// Regenerate refines a prior result. Only the text endpoint keeps
// server-side context; image and video refinements are fresh generations
// with the new payload.
func (c *Client) Regenerate(ctx context.Context, req domain.GenerationRequest) (domain.Output, error) {
	if req.Kind != domain.KindText {
		return c.Generate(ctx, req)
	}
	text, err := c.RegenerateText(ctx, req.Message, req.SessionID)
	if err != nil {
		return domain.Output{}, err
	}
	return domain.Output{Kind: domain.KindText, Text: text}, nil
}
