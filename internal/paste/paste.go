// Package paste uploads documents to a hastebin compatible paste service.
package paste

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Client struct {
	http    *http.Client
	baseURL string
}

func New(httpClient *http.Client, baseURL string) *Client {
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

type document struct {
	Key string `json:"key"`
}

// Upload stores content and returns its public URL. ext is appended to the
// key so the service highlights the document.
func (c *Client) Upload(ctx context.Context, content, ext string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents", strings.NewReader(content))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload paste: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload paste: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode paste response: %w", err)
	}
	if doc.Key == "" {
		return "", fmt.Errorf("upload paste: empty key")
	}

	url := c.baseURL + "/" + doc.Key
	if ext != "" {
		url += "." + ext
	}
	return url, nil
}
