// Package client talks to a running presentation generator server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

const (
	DefaultMaxRetries      = 2
	DefaultInitialInterval = time.Second
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests
}

type GenerateParams struct {
	Text         string
	Guidance     string
	APIKey       string
	Provider     string
	Model        string
	SpeakerNotes bool
	TemplatePath string
	SourcePath   string
	JobID        string
}

type Client struct {
	baseURL         string
	httpClient      *http.Client
	maxRetries      int
	initialInterval time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets how many times a timed-out, rate-limited or failed request
// is repeated, and the first backoff delay. Delays double between attempts.
func WithRetry(maxRetries int, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialInterval = initial
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpClient:      &http.Client{Timeout: 5 * time.Minute},
		maxRetries:      DefaultMaxRetries,
		initialInterval: DefaultInitialInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.initialInterval <= 0 {
		c.initialInterval = DefaultInitialInterval
	}
	return c
}

// Generate submits a generation request, retrying on timeouts, rate limits
// and transport errors.
func (c *Client) Generate(ctx context.Context, p GenerateParams) (*models.GenerateResponse, error) {
	body, contentType, err := encodeForm(p)
	if err != nil {
		return nil, err
	}

	var (
		result  *models.GenerateResponse
		attempt int
	)
	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			log.Printf("generate attempt %d failed: %v", attempt, err)
			return err
		}
		defer resp.Body.Close()

		var decoded models.GenerateResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		jsonErr := json.Unmarshal(raw, &decoded)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 || !decoded.Success {
			apiErr := &APIError{StatusCode: resp.StatusCode, Message: decoded.Error, Code: decoded.Code}
			if jsonErr != nil && apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(string(raw))
			}
			if apiErr.Retryable() {
				log.Printf("generate attempt %d: %v", attempt, apiErr)
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if jsonErr != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", jsonErr))
		}
		result = &decoded
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

// Download fetches a generated deck and writes it to dst.
func (c *Client) Download(ctx context.Context, downloadURL, dst string) error {
	url := downloadURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = c.baseURL + "/" + strings.TrimLeft(downloadURL, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "download failed"}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("download failed: %w", err)
	}
	return f.Close()
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(c.maxRetries))
}

func encodeForm(p GenerateParams) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"text", p.Text},
		{"guidance", p.Guidance},
		{"apiKey", p.APIKey},
		{"llmProvider", p.Provider},
		{"model", p.Model},
		{"generateSpeakerNotes", strconv.FormatBool(p.SpeakerNotes)},
		{"jobId", p.JobID},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if p.TemplatePath == "" {
		return nil, "", errors.New("template file is required")
	}
	if err := attachFile(mw, "templateFile", p.TemplatePath); err != nil {
		return nil, "", err
	}
	if p.SourcePath != "" {
		if err := attachFile(mw, "sourceFile", p.SourcePath); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func attachFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", field, err)
	}
	defer f.Close()

	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
