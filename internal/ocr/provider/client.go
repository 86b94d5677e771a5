// Package provider wraps the external OCR service that turns scanned FRA
// documents into raw text. A provider failure means no claim is created;
// the gateway layer maps the error for the user.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/pkg/logger"
	"github.com/atavi-atlas/backend/pkg/retry"
)

type Client struct {
	baseURL    string
	apiKey     string
	mode       string
	outputMode string
	httpClient *http.Client
	retryCfg   retry.Config
}

// Result is the provider's raw output: extracted text plus the provider's
// own confidence score.
type Result struct {
	Text       string
	Confidence float64
}

// Error carries the provider's status code so the gateway can distinguish
// rate limits from hard failures.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ocr provider error (status %d): %s", e.StatusCode, e.Message)
}

func NewClient(baseURL, apiKey, mode, outputMode string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		mode:       mode,
		outputMode: outputMode,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryCfg: retry.UpstreamConfig(logger.GetLogger()),
	}
}

// ExtractText submits a document and waits for the extraction result.
func (c *Client) ExtractText(ctx context.Context, document []byte, filename string) (*Result, error) {
	logger.Info("Submitting document for OCR",
		zap.String("filename", filename),
		zap.Int("size_bytes", len(document)),
	)

	result, err := retry.DoWithResult(ctx, c.retryCfg, func() (*Result, error) {
		return c.whisper(ctx, document, filename)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("OCR extraction completed",
		zap.String("filename", filename),
		zap.Int("text_length", len(result.Text)),
		zap.Float64("confidence", result.Confidence),
	)

	return result, nil
}

func (c *Client) whisper(ctx context.Context, document []byte, filename string) (*Result, error) {
	params := url.Values{}
	params.Set("mode", c.mode)
	params.Set("output_mode", c.outputMode)
	params.Set("file_name", filename)
	params.Set("wait_for_completion", "true")

	endpoint := fmt.Sprintf("%s/whisper?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("unstract-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach ocr provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var payload struct {
		Status     string `json:"status"`
		Extraction struct {
			ResultText string  `json:"result_text"`
			Confidence float64 `json:"confidence"`
		} `json:"extraction"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse provider response: %w", err)
	}

	return &Result{
		Text:       payload.Extraction.ResultText,
		Confidence: payload.Extraction.Confidence,
	}, nil
}
