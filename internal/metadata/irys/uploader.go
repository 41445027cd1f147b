// Package irys uploads to an Irys/Arweave HTTP gateway.
package irys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sol "github.com/gagliardetto/solana-go"
)

// HTTPUploader posts objects to the gateway, which answers {"uri": ...}.
type HTTPUploader struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewHTTPUploader creates an uploader for baseURL. apiKey is sent as a
// bearer token when set.
func NewHTTPUploader(baseURL, apiKey string) *HTTPUploader {
	return &HTTPUploader{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
	}
}

// UploadFile posts raw bytes to /upload/file.
func (u *HTTPUploader) UploadFile(ctx context.Context, uploader sol.PublicKey, name, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("file is empty")
	}
	headers := map[string]string{
		"Content-Type": contentType,
		"X-File-Name":  name,
	}
	return u.post(ctx, "/upload/file", uploader, headers, data)
}

// UploadJSON posts a JSON document to /upload/json.
func (u *HTTPUploader) UploadJSON(ctx context.Context, uploader sol.PublicKey, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("metadata JSON is empty")
	}
	return u.post(ctx, "/upload/json", uploader, map[string]string{"Content-Type": "application/json"}, data)
}

func (u *HTTPUploader) post(ctx context.Context, path string, uploader sol.PublicKey, headers map[string]string, body []byte) (string, error) {
	if u.baseURL == "" {
		return "", fmt.Errorf("irys gateway URL not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("X-Uploader", uploader.String())
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiKey)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload to %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload to %s failed: status=%d body=%s", path, resp.StatusCode, string(respBody))
	}

	var res struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(respBody, &res); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if res.URI == "" {
		return "", fmt.Errorf("upload response has empty uri")
	}
	return res.URI, nil
}
