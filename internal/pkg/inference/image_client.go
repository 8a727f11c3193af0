package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// ImageClient is an HTTP client for NSFW image classification
// (Falconsai/nsfw_image_detection style serving).
type ImageClient struct {
	config     Config
	httpClient *http.Client
}

// NewImageClient creates a new image classification client.
func NewImageClient(config Config) *ImageClient {
	return &ImageClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// predictResponse represents the API response from the model server.
type predictResponse struct {
	Predictions []Label `json:"predictions"`
}

// Classify sends the image bytes to the model server and returns every
// label with its score. Transient failures (connection errors, 5xx) are
// retried with exponential backoff.
func (c *ImageClient) Classify(ctx context.Context, image []byte) ([]Label, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	var labels []Label
	backoff := retry.WithMaxRetries(c.config.MaxRetries, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		labels, err = c.doRequest(ctx, bytes.NewReader(body.Bytes()), writer.FormDataContentType())
		return err
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}

func (c *ImageClient) doRequest(ctx context.Context, body io.Reader, contentType string) ([]Label, error) {
	url := c.config.BaseURL + "/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("failed to call image classifier: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, retry.RetryableError(fmt.Errorf("image classifier returned %d: %s", resp.StatusCode, respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image classifier returned %d: %s", resp.StatusCode, respBody)
	}

	var predict predictResponse
	if err := json.Unmarshal(respBody, &predict); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return predict.Predictions, nil
}
