package powerprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/attestx/attestx-backend/pkg/logging"
	"github.com/attestx/attestx-backend/pkg/retry"
	pkgtypes "github.com/attestx/attestx-backend/pkg/types"
)

// Config holds connection settings for the power provider service.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	RetryConfig    *retry.RetryConfig
}

// Client queries operator voting power snapshots pinned to a checkpoint.
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
		return nil, fmt.Errorf("power provider base URL cannot be empty")
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

type powerResponse struct {
	Power *pkgtypes.BigInt `json:"power"`
}

// VotingPowerAt returns the operator's voting power at the given checkpoint.
// Operator identities are hex addresses and are validated before the query.
func (c *Client) VotingPowerAt(ctx context.Context, operator string, checkpoint uint64) (*pkgtypes.BigInt, error) {
	if !common.IsHexAddress(operator) {
		return nil, fmt.Errorf("invalid operator address: %s", operator)
	}
	address := common.HexToAddress(operator).Hex()
	url := fmt.Sprintf("%s/power/%s?checkpoint=%d", c.config.BaseURL, address, checkpoint)
	return c.queryPower(ctx, url)
}

// TotalPowerAt returns the total power of all operators at the checkpoint.
func (c *Client) TotalPowerAt(ctx context.Context, checkpoint uint64) (*pkgtypes.BigInt, error) {
	url := fmt.Sprintf("%s/power/total?checkpoint=%d", c.config.BaseURL, checkpoint)
	return c.queryPower(ctx, url)
}

func (c *Client) queryPower(ctx context.Context, url string) (*pkgtypes.BigInt, error) {
	operation := func() (*pkgtypes.BigInt, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("power provider request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("power provider returned status %d", resp.StatusCode)
		}

		var power powerResponse
		if err := json.NewDecoder(resp.Body).Decode(&power); err != nil {
			return nil, fmt.Errorf("decode power response: %w", err)
		}
		if power.Power == nil {
			return nil, fmt.Errorf("power provider returned no power value")
		}
		return power.Power, nil
	}

	return retry.Retry(ctx, operation, c.config.RetryConfig, c.logger)
}
