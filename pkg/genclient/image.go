package genclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"frostgreet/pkg/domain"
)

// ImageResult is the edited picture as the server returns it: base64 bytes
// plus a format tag, ready to be decoded into a displayable file.
type ImageResult struct {
	Base64 string
	Format string
}

// Decode returns the raw image bytes.
func (r ImageResult) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Base64)
}

type imageResponse struct {
	Success        bool   `json:"success"`
	GeneratedImage string `json:"generated_image"`
	ImageFormat    string `json:"image_format"`
}

// GenerateImage uploads a picture with a template and instructions and
// returns the edited result. Oversized input fails before any network call.
func (c *Client) GenerateImage(ctx context.Context, payload domain.ImagePayload) (ImageResult, error) {
	if len(payload.Data) == 0 {
		return ImageResult{}, ErrMissingImage
	}
	if len(payload.Data) > MaxImageBytes {
		return ImageResult{}, ErrPayloadTooLarge
	}
	var req *http.Request
	var err error
	if c.imageEncoding == EncodingBase64 {
		req, err = c.imageJSONRequest(ctx, payload)
	} else {
		req, err = c.imageMultipartRequest(ctx, payload)
	}
	if err != nil {
		return ImageResult{}, err
	}

	var out imageResponse
	if err := c.do(c.httpClient, req, &out); err != nil {
		return ImageResult{}, err
	}
	if !out.Success || out.GeneratedImage == "" {
		return ImageResult{}, &MalformedResponseError{Field: "generated_image"}
	}
	format := out.ImageFormat
	if format == "" {
		format = "image/png"
	}
	return ImageResult{Base64: out.GeneratedImage, Format: format}, nil
}

func (c *Client) imageJSONRequest(ctx context.Context, payload domain.ImagePayload) (*http.Request, error) {
	body, err := json.Marshal(map[string]string{
		"template_type": string(payload.Template),
		"text":          payload.Text,
		"image_data":    base64.StdEncoding.EncodeToString(payload.Data),
		"image_format":  payload.Format,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/img/generate/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) imageMultipartRequest(ctx context.Context, payload domain.ImagePayload) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("template_type", string(payload.Template)); err != nil {
		return nil, err
	}
	if err := w.WriteField("text", payload.Text); err != nil {
		return nil, err
	}
	if err := w.WriteField("image_format", payload.Format); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile("image_data", "upload")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, bytes.NewReader(payload.Data)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/img/generate/", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}
