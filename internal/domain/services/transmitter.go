package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"permguard-lab/internal/domain/models"
	"permguard-lab/pkg/logger"
)

var (
	// ErrNoEndpoint is returned when transmission is attempted without a configured endpoint
	ErrNoEndpoint = errors.New("no transmission endpoint configured")
	// ErrRejected is returned when the endpoint answers with a non-2xx status below 500
	ErrRejected = errors.New("report rejected by endpoint")
)

// TransmitterConfig configures report delivery
type TransmitterConfig struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Headers    map[string]string
}

// TransmissionResult describes a successful delivery
type TransmissionResult struct {
	Endpoint   string `json:"endpoint"`
	StatusCode int    `json:"status_code"`
	Attempts   int    `json:"attempts"`
	DurationMS int64  `json:"duration_ms"`
	SentAt     string `json:"sent_at"`
}

// Transmitter POSTs JSON reports to the lab endpoint
type Transmitter struct {
	cfg        TransmitterConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewTransmitter creates a new transmitter
func NewTransmitter(cfg TransmitterConfig, log *logger.Logger) *Transmitter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &Transmitter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.WithComponent("transmitter"),
	}
}

// Endpoint returns the configured endpoint
func (t *Transmitter) Endpoint() string {
	return t.cfg.Endpoint
}

// Send delivers the report. Network errors and 5xx responses are retried
// with linear backoff; any other non-2xx status fails immediately.
func (t *Transmitter) Send(ctx context.Context, report *models.Report) (*TransmissionResult, error) {
	if t.cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}

	body, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= t.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * t.cfg.RetryDelay):
			}
		}

		log := t.logger.WithFields(map[string]any{
			"endpoint": t.cfg.Endpoint,
			"attempt":  attempt,
		})

		status, err := t.post(ctx, body)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn().Msg("report transmission failed")
			continue
		}

		switch {
		case status >= 200 && status < 300:
			log.Info().Int("status", status).Msg("report sent")
			return &TransmissionResult{
				Endpoint:   t.cfg.Endpoint,
				StatusCode: status,
				Attempts:   attempt,
				DurationMS: time.Since(start).Milliseconds(),
				SentAt:     models.FormatTimestamp(time.Now()),
			}, nil
		case status >= 500:
			lastErr = fmt.Errorf("server error: HTTP %d", status)
			log.Warn().Int("status", status).Msg("report endpoint returned server error")
		default:
			return nil, fmt.Errorf("%w: HTTP %d", ErrRejected, status)
		}
	}

	return nil, fmt.Errorf("transmission failed after %d attempts: %w", t.cfg.MaxRetries, lastErr)
}

func (t *Transmitter) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
