package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const InternalAPIKeyHeader = "X-Internal-Api-Key"

// StorageService talks to the backend that owns the object store. Keys are
// opaque to this service.
type StorageService interface {
	ResolveAccessURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
	Upload(ctx context.Context, data []byte, filename, folder string) (string, error)
}

type StorageTimeouts struct {
	Resolve  time.Duration
	Download time.Duration
	Upload   time.Duration
}

type storageService struct {
	baseURL    string
	apiKey     string
	timeouts   StorageTimeouts
	httpClient *http.Client
	log        zerolog.Logger
}

func NewStorageService(baseURL, apiKey string, timeouts StorageTimeouts, log zerolog.Logger) StorageService {
	return &storageService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		timeouts:   timeouts,
		httpClient: &http.Client{},
		log:        log.With().Str("component", "storage").Logger(),
	}
}

type presignRequest struct {
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"`
}

type presignResponse struct {
	URL string `json:"url"`
}

type uploadResponse struct {
	Key string `json:"key"`
}

// ResolveAccessURL implements StorageService.
func (s *storageService) ResolveAccessURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Resolve)
	defer cancel()

	payload, err := json.Marshal(presignRequest{Key: key, ExpiresIn: int(ttl.Seconds())})
	if err != nil {
		return "", fmt.Errorf("failed to encode access url request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/upload/internal/presigned-url", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build access url request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(InternalAPIKeyHeader, s.apiKey)

	var out presignResponse
	if err := s.doJSON(req, "resolve access url", &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("resolve access url: response has no url for key %s", key)
	}
	return out.URL, nil
}

// Download implements StorageService.
func (s *storageService) Download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Download)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Op: "download", StatusCode: resp.StatusCode, Body: truncateBody(data)}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("downloaded file is empty")
	}
	return data, nil
}

// Upload implements StorageService.
func (s *storageService) Upload(ctx context.Context, data []byte, filename, folder string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Upload)
	defer cancel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if folder != "" {
		if err := mw.WriteField("folder", folder); err != nil {
			return "", fmt.Errorf("failed to build upload request: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/upload/internal/pdf", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(InternalAPIKeyHeader, s.apiKey)

	var out uploadResponse
	if err := s.doJSON(req, "upload", &out); err != nil {
		return "", err
	}
	if out.Key == "" {
		return "", fmt.Errorf("upload: response has no key")
	}

	s.log.Info().Str("key", out.Key).Str("size", formatBytes(len(data))).Msg("artifact uploaded")
	return out.Key, nil
}

func (s *storageService) doJSON(req *http.Request, op string, target any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%s: invalid response: %w", op, err)
	}
	return nil
}
