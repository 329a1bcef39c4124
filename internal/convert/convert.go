// Package convert is a client for the external STL to STEP conversion
// service. The service is a three-step protocol: upload the STL, trigger
// the conversion, then download the result.
package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// MaxStepBytes bounds the downloaded STEP file.
const MaxStepBytes = 64 << 20

// Client talks to a conversion service at BaseURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. timeout bounds each request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// serviceError is the error body the service returns.
type serviceError struct {
	Error string `json:"error"`
}

// convertResult is the body of GET /convert.
type convertResult struct {
	ReturnCode int    `json:"returncode"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Error      string `json:"error"`
}

// Convert uploads stl under name, runs the conversion and returns the STEP
// file contents.
func (c *Client) Convert(ctx context.Context, name string, stl []byte) ([]byte, error) {
	if err := c.upload(ctx, name, stl); err != nil {
		return nil, err
	}
	if err := c.convert(ctx); err != nil {
		return nil, err
	}
	return c.download(ctx)
}

func (c *Client) upload(ctx context.Context, name string, stl []byte) error {
	if !strings.HasSuffix(strings.ToLower(name), ".stl") {
		name += ".stl"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(stl); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploadStlToServer", &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	_, err = c.do(req, 1<<20)
	return err
}

func (c *Client) convert(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/convert", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	body, err := c.do(req, 1<<20)
	if err != nil {
		return err
	}

	var res convertResult
	if err := json.Unmarshal(body, &res); err != nil {
		return fmt.Errorf("failed to parse convert response: %w", err)
	}
	if res.Error != "" {
		return fmt.Errorf("conversion failed: %s", res.Error)
	}
	if res.ReturnCode != 0 {
		return fmt.Errorf("conversion failed with exit code %d: %s", res.ReturnCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/download", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, MaxStepBytes)
}

// do runs req and returns at most limit bytes of a 200 response body.
func (c *Client) do(req *http.Request, limit int64) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%s %s: response exceeds %d bytes", req.Method, req.URL.Path, limit)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr serviceError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s %s (%d): %s", req.Method, req.URL.Path, resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("%s %s (%d): %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
