package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-retryablehttp"
)

const imgurDefaultBaseURL = "https://api.imgur.com/3"

// ImgurBackend uploads images to imgur.com using the anonymous Client-ID
// authorization scheme.
type ImgurBackend struct {
	clientID string
	baseURL  string
	client   *retryablehttp.Client
}

var _ HostingBackend = (*ImgurBackend)(nil)

// NewImgurBackend creates an Imgur backend with the given API client id.
func NewImgurBackend(clientID string) *ImgurBackend {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	// A 429 must surface to the caller as a rate limit error, not be
	// retried until the quota window resets.
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return &ImgurBackend{
		clientID: clientID,
		baseURL:  imgurDefaultBaseURL,
		client:   client,
	}
}

func (b *ImgurBackend) Name() string {
	return "Imgur backend"
}

// imgurUploadResponse is the subset of the Imgur image upload response we use.
type imgurUploadResponse struct {
	Data struct {
		Link  string `json:"link"`
		Error string `json:"error"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// Upload posts the image file at path to the Imgur image endpoint and returns
// the direct link to the uploaded image.
func (b *ImgurBackend) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for upload: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to build upload form for %s: %w", path, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read %s into upload form: %w", path, err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload form for %s: %w", path, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/image", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Client-ID "+b.clientID)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &RateLimitError{Backend: b.Name(), Message: resp.Status}
	}
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read upload response for %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload of %s failed: %s", path, resp.Status)
	}

	var parsed imgurUploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse upload response for %s: %w", path, err)
	}
	if !parsed.Success || parsed.Data.Link == "" {
		if parsed.Data.Error != "" {
			return "", fmt.Errorf("upload of %s rejected: %s", path, parsed.Data.Error)
		}
		return "", fmt.Errorf("upload of %s rejected: response carries no link", path)
	}
	return parsed.Data.Link, nil
}
