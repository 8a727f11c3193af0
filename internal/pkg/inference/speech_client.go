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

// SpeechClient is an HTTP client for speech-to-text transcription
// (whisper-style serving).
type SpeechClient struct {
	config     Config
	httpClient *http.Client
}

// NewSpeechClient creates a new transcription client.
func NewSpeechClient(config Config) *SpeechClient {
	return &SpeechClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// transcribeResponse represents the API response from the speech server.
type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe sends the audio bytes to the speech server and returns the
// transcript text. Transient failures are retried with backoff.
func (c *SpeechClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	var text string
	backoff := retry.WithMaxRetries(c.config.MaxRetries, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		text, err = c.doRequest(ctx, bytes.NewReader(body.Bytes()), writer.FormDataContentType())
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *SpeechClient) doRequest(ctx context.Context, body io.Reader, contentType string) (string, error) {
	url := c.config.BaseURL + "/transcribe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", retry.RetryableError(fmt.Errorf("failed to call transcriber: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", retry.RetryableError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", retry.RetryableError(fmt.Errorf("transcriber returned %d: %s", resp.StatusCode, respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcriber returned %d: %s", resp.StatusCode, respBody)
	}

	var tr transcribeResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return tr.Text, nil
}
