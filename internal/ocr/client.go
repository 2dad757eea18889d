package ocr

// Package ocr talks to the external document extraction service. The
// service is an opaque collaborator: this client forwards the file and
// document type, and passes the response shape through unmodified.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Document types the extraction service accepts.
const (
	DocumentTypePassport         = "passport"
	DocumentTypeBirthCertificate = "birth_certificate"
)

// IsValidDocumentType reports whether t is one of the supported types.
func IsValidDocumentType(t string) bool {
	return t == DocumentTypePassport || t == DocumentTypeBirthCertificate
}

// Confidence carries the extraction service's per-field and overall
// confidence scores.
type Confidence struct {
	Overall float64            `json:"overall"`
	Fields  map[string]float64 `json:"fields,omitempty"`
}

// Result is the extraction response, passed through to the caller as-is.
type Result struct {
	Success       bool           `json:"success"`
	ExtractedData map[string]any `json:"extracted_data,omitempty"`
	Confidence    *Confidence    `json:"confidence,omitempty"`
	DocumentType  string         `json:"document_type,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// ExtractRequest describes one extraction call.
type ExtractRequest struct {
	DocumentType string
	FileName     string
	ContentType  string
	Content      io.Reader
	// CSRFToken is forwarded as X-CSRF-Token when present.
	CSRFToken string
}

// Client posts files to the extraction endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a Client for the given endpoint URL. Outbound calls
// carry trace context so extraction spans join the request trace.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Extract uploads the file and returns the service's result. Transport
// and decoding failures come back as errors; extraction failures come
// back inside Result with Success=false, exactly as the service reported
// them.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) (*Result, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("ocr endpoint is not configured")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("document_type", req.DocumentType); err != nil {
		return nil, fmt.Errorf("write document_type field: %w", err)
	}
	part, err := w.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, req.Content); err != nil {
		return nil, fmt.Errorf("copy file content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	if req.CSRFToken != "" {
		httpReq.Header.Set("X-CSRF-Token", req.CSRFToken)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	return &res, nil
}
