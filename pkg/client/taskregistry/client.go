package taskregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/attestx/attestx-backend/internal/verifier/types"
	"github.com/attestx/attestx-backend/pkg/logging"
	"github.com/attestx/attestx-backend/pkg/retry"
)

// Config holds connection settings for the task registry service.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	RetryConfig    *retry.RetryConfig
}

// Client talks to the task registry: it reads task lifecycle state and
// dispatches the completion command once a task finalizes.
type Client struct {
	logger     logging.Logger
	config     Config
	httpClient *http.Client
}

func NewClient(logger logging.Logger, cfg Config) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("task registry base URL cannot be empty")
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = retry.DefaultRetryConfig()
	}

	return &Client{
		logger:     logger,
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

// TaskStatus returns the registry's view of a task: lifecycle status, the
// checkpoint it was created at, and its expiry time.
func (c *Client) TaskStatus(ctx context.Context, registryRef string, taskID uint64) (*types.TaskStatusInfo, error) {
	url := fmt.Sprintf("%s/registries/%s/tasks/%d/status", c.config.BaseURL, registryRef, taskID)

	operation := func() (*types.TaskStatusInfo, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("task registry request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("task registry returned status %d", resp.StatusCode)
		}

		var status types.TaskStatusInfo
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return nil, fmt.Errorf("decode task status: %w", err)
		}
		return &status, nil
	}

	return retry.Retry(ctx, operation, c.config.RetryConfig, c.logger)
}

type completeRequest struct {
	TaskID uint64          `json:"task_id"`
	Result json.RawMessage `json:"result"`
}

// Complete submits the accepted result for a finalized task.
func (c *Client) Complete(ctx context.Context, registryRef string, taskID uint64, result string) error {
	url := fmt.Sprintf("%s/registries/%s/tasks/%d/complete", c.config.BaseURL, registryRef, taskID)

	body, err := json.Marshal(completeRequest{TaskID: taskID, Result: json.RawMessage(result)})
	if err != nil {
		return fmt.Errorf("marshal complete request: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("task registry request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("task registry returned status %d", resp.StatusCode)
		}
		return nil
	}

	return retry.RetryFunc(ctx, operation, c.config.RetryConfig, c.logger)
}
