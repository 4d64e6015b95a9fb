// Package imageapi is a client for the AlexFlipnote image generation API.
package imageapi

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxImageSize caps a single response; Discord rejects larger uploads anyway.
const maxImageSize = 8 << 20

// KeyFunc returns the API key. It is called for every request so a rotated
// key takes effect without a restart.
type KeyFunc func() (string, error)

type Client struct {
	http    *http.Client
	baseURL string
	key     KeyFunc
}

type Image struct {
	Data        []byte
	ContentType string
}

// Filename names the image after its content type, e.g. supreme.png.
func (i Image) Filename(name string) string {
	if exts, err := mime.ExtensionsByType(i.ContentType); err == nil && len(exts) > 0 {
		return name + exts[0]
	}
	return name + ".png"
}

type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("image api %s returned status %d", e.Endpoint, e.Code)
}

// New builds a client with its own connection pool so Close does not touch
// other HTTP users.
func New(baseURL string, key KeyFunc, timeout time.Duration) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &Client{
		http:    &http.Client{Timeout: timeout, Transport: transport},
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
	}
}

func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

type SupremeOptions struct {
	Dark  bool
	Light bool
}

func (c *Client) Supreme(ctx context.Context, text string, opts SupremeOptions) (Image, error) {
	query := url.Values{"text": {text}}
	if opts.Dark {
		query.Set("dark", "true")
	}
	if opts.Light {
		query.Set("light", "true")
	}
	return c.image(ctx, "supreme", query)
}

func (c *Client) image(ctx context.Context, endpoint string, query url.Values) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Image{}, err
	}
	key, err := c.key()
	if err != nil {
		return Image{}, fmt.Errorf("image api key: %w", err)
	}
	if key != "" {
		req.Header.Set("Authorization", key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Image{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return Image{}, err
	}
	if len(data) > maxImageSize {
		return Image{}, fmt.Errorf("image api %s: response larger than %d bytes", endpoint, maxImageSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	return Image{Data: data, ContentType: contentType}, nil
}
