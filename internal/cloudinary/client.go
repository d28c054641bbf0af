// Package cloudinary wraps the Cloudinary unsigned-upload-free (signed) image
// upload API. The ingestion pipeline hands it raw image bytes fetched from
// the Places media endpoint; a successful upload yields a stable public URL
// used as the record's hero image.
//
// Upload failures map to KindImagePublishFailed, which the pipeline treats
// as degraded enrichment rather than a fatal error.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BattermanZ/Gastropath/internal/domain"
)

const (
	defaultBaseURL = "https://api.cloudinary.com"
	providerName   = "cloudinary"
)

// Credentials identifies a Cloudinary account.
type Credentials struct {
	CloudName string
	APIKey    string
	APISecret string
}

// Client uploads images to Cloudinary.
type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	// now is a clock seam for deterministic signatures in tests.
	now func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the provider endpoint (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock overrides the timestamp source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New constructs a Client with the given credentials and per-call timeout.
func New(creds Credentials, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		creds:   creds,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload publishes image bytes and returns the resulting secure URL.
func (c *Client) Upload(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", domain.Fail(domain.KindImagePublishFailed, providerName, "empty image payload")
	}

	ts := c.now().Unix()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("file", "photo.jpg")
	if err != nil {
		return "", domain.Wrap(domain.KindImagePublishFailed, providerName, err, "building multipart body")
	}
	if _, err := part.Write(image); err != nil {
		return "", domain.Wrap(domain.KindImagePublishFailed, providerName, err, "writing image bytes")
	}
	_ = w.WriteField("api_key", c.creds.APIKey)
	_ = w.WriteField("timestamp", fmt.Sprint(ts))
	_ = w.WriteField("signature", c.sign(ts))
	if err := w.Close(); err != nil {
		return "", domain.Wrap(domain.KindImagePublishFailed, providerName, err, "closing multipart body")
	}

	uploadURL := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.creds.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return "", domain.Wrap(domain.KindImagePublishFailed, providerName, err, "building upload request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", domain.Wrap(domain.KindTimeout, providerName, ctx.Err(), "image upload cancelled")
		}
		return "", domain.Wrap(domain.KindImagePublishFailed, providerName, err, "calling upload api")
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.Wrap(domain.KindImagePublishFailed, providerName, err, "decoding upload response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "upload failed"
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", domain.Fail(domain.KindImagePublishFailed, providerName, "status %d: %s", resp.StatusCode, msg)
	}
	if out.SecureURL == "" {
		return "", domain.Fail(domain.KindImagePublishFailed, providerName, "upload response carries no secure_url")
	}

	log.Debug().Str("url", out.SecureURL).Msg("image published")
	return out.SecureURL, nil
}

// sign computes the SHA1 request signature over the timestamp parameter, as
// required by Cloudinary's signed upload flow.
func (c *Client) sign(ts int64) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("timestamp=%d%s", ts, c.creds.APISecret)))
	return hex.EncodeToString(sum[:])
}
