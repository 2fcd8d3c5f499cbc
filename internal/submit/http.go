package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"routined/internal/routine"
	logx "routined/pkg/logx"
)

// HTTP POSTs each batch as JSON. Any non-2xx status is an error.
type HTTP struct {
	url     string
	headers map[string]string
	client  *http.Client
	log     logx.Logger
}

func NewHTTP(cfg HTTPConfig, log logx.Logger) (*HTTP, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse submit URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("submit URL must be http(s): %q", cfg.URL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTP{
		url:     u.String(),
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
		log:     log.With(logx.String("submitter", "http")),
	}, nil
}

func (h *HTTP) Submit(ctx context.Context, tasks []routine.Task) error {
	batch := Batch{BatchID: uuid.NewString(), SubmittedAt: time.Now().UTC(), Tasks: tasks}
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-request-id", batch.BatchID)
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	h.log.Debug("posting batch", logx.String("url", h.url), logx.String("batch_id", batch.BatchID), logx.Int("tasks", len(tasks)))

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
