package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"alfredoptarigan/counsel-report/internal/models"
)

// Notifier delivers the completion signal. Delivery is best effort: failures
// are logged and never retried.
type Notifier interface {
	Notify(ctx context.Context, outcome models.PipelineOutcome)
}

type webhookNotifier struct {
	url        string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

func NewWebhookNotifier(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) Notifier {
	return &webhookNotifier{
		url:        strings.TrimRight(baseURL, "/") + "/api/v1/webhook/integrated-report-complete",
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{},
		log:        log.With().Str("component", "notifier").Logger(),
	}
}

// Notify implements Notifier.
func (n *webhookNotifier) Notify(ctx context.Context, outcome models.PipelineOutcome) {
	logger := n.log.With().
		Str("request_id", outcome.CounselRequestID).
		Str("status", string(outcome.Status)).
		Logger()

	payload, err := json.Marshal(outcome)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode completion webhook")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		logger.Error().Err(err).Msg("failed to build completion webhook")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(InternalAPIKeyHeader, n.apiKey)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Msg("completion webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logger.Error().Err(&RemoteError{Op: "completion webhook", StatusCode: resp.StatusCode, Body: string(body)}).Msg("completion webhook rejected")
		return
	}
	logger.Info().Msg("completion webhook delivered")
}
