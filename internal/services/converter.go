package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// minPDFSize rejects converter answers too small to be a real PDF.
const minPDFSize = 100

type Converter interface {
	// Convert turns .docx bytes into PDF bytes.
	Convert(ctx context.Context, docx []byte) ([]byte, error)
	Health(ctx context.Context) error
}

type gotenbergConverter struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

func NewGotenbergConverter(baseURL string, timeout time.Duration, log zerolog.Logger) Converter {
	return &gotenbergConverter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		log:        log.With().Str("component", "converter").Logger(),
	}
}

// Convert implements Converter.
func (c *gotenbergConverter) Convert(ctx context.Context, docx []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "document.docx")
	if err != nil {
		return nil, fmt.Errorf("failed to build conversion request: %w", err)
	}
	if _, err := part.Write(docx); err != nil {
		return nil, fmt.Errorf("failed to build conversion request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build conversion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/libreoffice/convert", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build conversion request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("document conversion failed: %w", err)
	}
	defer resp.Body.Close()

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read converted document: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Op: "convert document", StatusCode: resp.StatusCode, Body: truncateBody(pdf)}
	}
	if len(pdf) < minPDFSize {
		return nil, fmt.Errorf("converter returned no usable PDF (%d bytes)", len(pdf))
	}

	c.log.Debug().
		Str("docx_size", formatBytes(len(docx))).
		Str("pdf_size", formatBytes(len(pdf))).
		Str("took", formatDuration(time.Since(start))).
		Msg("document converted")
	return pdf, nil
}

// Health implements Converter.
func (c *gotenbergConverter) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("converter unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &RemoteError{Op: "converter health", StatusCode: resp.StatusCode}
	}
	return nil
}
