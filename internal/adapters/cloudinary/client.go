package cloudinary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Client uploads receipt images through Cloudinary's unsigned upload API and
// returns the hosted URL. Implements usecase.ImageStore.
type Client struct {
	uploadURL string
	preset    string
	client    *http.Client
}

func New(uploadURL, preset string, timeout time.Duration) *Client {
	return &Client{uploadURL: uploadURL, preset: preset, client: &http.Client{Timeout: timeout}}
}

func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mp := multipart.NewWriter(pw)
	go func() {
		part, err := mp.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := mp.WriteField("upload_preset", c.preset); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mp.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mp.FormDataContentType())

	res, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return "", fmt.Errorf("image upload failed: %d", res.StatusCode)
	}
	var out struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("image upload returned no url")
	}
	return out.SecureURL, nil
}
