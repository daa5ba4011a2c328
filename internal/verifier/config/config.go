package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/attestx/attestx-backend/internal/verifier/core/tally"
)

// TallyMode selects the result-resolution strategy.
type TallyMode string

const (
	ModeExactMatch   TallyMode = "exact"
	ModeMedianSpread TallyMode = "median"
)

// StorageBackend selects where tasks, votes and slash flags persist.
type StorageBackend string

const (
	StorageMemory    StorageBackend = "memory"
	StorageCassandra StorageBackend = "cassandra"
)

type Config struct {
	devMode bool

	tallyMode          TallyMode
	requiredPercentage uint64
	thresholdPercent   decimal.Decimal
	allowedSpread      decimal.Decimal
	slashableSpread    decimal.Decimal

	storageBackend StorageBackend
	databaseHost   string
	databasePort   string

	taskRegistryURL  string
	powerProviderURL string

	rpcPort         string
	janitorInterval string
}

var cfg Config

// Init loads and validates the service configuration from the environment.
// Invalid percentages or spreads are fatal; the service refuses to start.
func Init() error {
	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine when the environment is already set.
		fmt.Println("no .env file found, using environment variables")
	}

	cfg = Config{
		devMode:          os.Getenv("DEV_MODE") == "true",
		tallyMode:        TallyMode(envOrDefault("TALLY_MODE", string(ModeExactMatch))),
		storageBackend:   StorageBackend(envOrDefault("STORAGE_BACKEND", string(StorageMemory))),
		databaseHost:     envOrDefault("DATABASE_HOST", "localhost"),
		databasePort:     envOrDefault("DATABASE_PORT", "9042"),
		taskRegistryURL:  os.Getenv("TASK_REGISTRY_URL"),
		powerProviderURL: os.Getenv("POWER_PROVIDER_URL"),
		rpcPort:          envOrDefault("VERIFIER_RPC_PORT", "9201"),
		janitorInterval:  envOrDefault("JANITOR_INTERVAL", "@every 1m"),
	}

	requiredPercentage, err := strconv.ParseUint(envOrDefault("REQUIRED_PERCENTAGE", "70"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid REQUIRED_PERCENTAGE: %w", err)
	}
	if requiredPercentage == 0 || requiredPercentage > 100 {
		return fmt.Errorf("REQUIRED_PERCENTAGE must be in (0, 100], got %d", requiredPercentage)
	}
	cfg.requiredPercentage = requiredPercentage

	switch cfg.tallyMode {
	case ModeExactMatch:
	case ModeMedianSpread:
		if err := parseMedianConfig(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown TALLY_MODE: %s", cfg.tallyMode)
	}

	switch cfg.storageBackend {
	case StorageMemory, StorageCassandra:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND: %s", cfg.storageBackend)
	}

	if cfg.taskRegistryURL == "" || cfg.powerProviderURL == "" {
		return fmt.Errorf("TASK_REGISTRY_URL and POWER_PROVIDER_URL must be set")
	}

	if !cfg.devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	return nil
}

func parseMedianConfig() error {
	var err error
	cfg.thresholdPercent, err = decimal.NewFromString(envOrDefault("THRESHOLD_PERCENT", "0.67"))
	if err != nil {
		return fmt.Errorf("invalid THRESHOLD_PERCENT: %w", err)
	}
	cfg.allowedSpread, err = decimal.NewFromString(envOrDefault("ALLOWED_SPREAD", "0.1"))
	if err != nil {
		return fmt.Errorf("invalid ALLOWED_SPREAD: %w", err)
	}
	cfg.slashableSpread, err = decimal.NewFromString(envOrDefault("SLASHABLE_SPREAD", "0.2"))
	if err != nil {
		return fmt.Errorf("invalid SLASHABLE_SPREAD: %w", err)
	}

	// Same bounds the strategy enforces; failing here keeps startup errors
	// close to the .env that caused them.
	return tally.MedianSpreadConfig{
		ThresholdPercent: cfg.thresholdPercent,
		AllowedSpread:    cfg.allowedSpread,
		SlashableSpread:  cfg.slashableSpread,
	}.Validate()
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func IsDevMode() bool { return cfg.devMode }

func GetTallyMode() TallyMode { return cfg.tallyMode }

func GetRequiredPercentage() uint64 { return cfg.requiredPercentage }

func GetThresholdPercent() decimal.Decimal { return cfg.thresholdPercent }

func GetAllowedSpread() decimal.Decimal { return cfg.allowedSpread }

func GetSlashableSpread() decimal.Decimal { return cfg.slashableSpread }

func GetStorageBackend() StorageBackend { return cfg.storageBackend }

func GetDatabaseHost() string { return cfg.databaseHost }

func GetDatabasePort() string { return cfg.databasePort }

func GetTaskRegistryURL() string { return cfg.taskRegistryURL }

func GetPowerProviderURL() string { return cfg.powerProviderURL }

func GetRPCPort() string { return cfg.rpcPort }

func GetJanitorInterval() string { return cfg.janitorInterval }
