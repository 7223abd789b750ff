package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/tonkeeper/tongo/ton"

	"tierraffle/internal/logger"
)

const (
	DefaultProgramID     = "0:7a3f0c5e9d2b41a8c6e3f70b5d19a24e8c0f6b3d2a1e9c7b5f4d3a2c1b0e9f8d"
	DefaultOpsWallet     = "0:8e2a4c6b1d3f5e7a9c0b2d4f6e8a1c3b5d7f9e0a2c4b6d8f1e3a5c7b9d0f2e4a"
	DefaultBurnWallet    = "-1:0000000000000000000000000000000000000000000000000000000000000000"
	DefaultDatabasePath  = "raffle.db"
	DefaultTrackInterval = 5 * time.Second
)

const (
	EntropyProviderLocal  = "local"
	EntropyProviderLite   = "lite"
	EntropyProviderTonapi = "tonapi"
)

// Configuration is the process-wide static configuration. It is loaded once
// and never mutated afterwards.
type Configuration struct {
	ProgramID  ton.AccountID
	Authority  *ton.AccountID
	OpsWallet  ton.AccountID
	BurnWallet ton.AccountID

	DatabasePath    string
	EntropyProvider string
	TonapiToken     string
	MetricsAddress  string
	TrackInterval   time.Duration

	Logger logger.Configuration
}

var (
	loadOnce   sync.Once
	loaded     *Configuration
	loadingErr error
)

// Load reads .env (if present) and the process environment exactly once.
// Subsequent calls return the first result.
func Load(files ...string) (*Configuration, error) {
	loadOnce.Do(func() {
		if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
			loadingErr = fmt.Errorf("config: load env file: %w", err)
			return
		}
		loaded, loadingErr = FromLookup(os.LookupEnv)
	})
	return loaded, loadingErr
}

// FromLookup builds a configuration from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Configuration, error) {
	get := func(key, fallback string) string {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return fallback
	}

	var err error
	configuration := &Configuration{
		DatabasePath:    get("RAFFLE_DATABASE", DefaultDatabasePath),
		EntropyProvider: strings.ToLower(get("ENTROPY_PROVIDER", EntropyProviderLocal)),
		TonapiToken:     get("TONAPI_TOKEN", ""),
		MetricsAddress:  get("METRICS_ADDRESS", ""),
		Logger: logger.Configuration{
			LogFile:   get("LOG_FILE", ""),
			ErrorFile: get("LOG_ERROR_FILE", ""),
			Level:     get("LOG_LEVEL", "info"),
		},
	}

	configuration.Logger.Console, err = strconv.ParseBool(get("LOG_CONSOLE", "true"))
	if err != nil {
		return nil, fmt.Errorf("config: LOG_CONSOLE: %w", err)
	}

	if configuration.ProgramID, err = ton.ParseAccountID(get("RAFFLE_PROGRAM_ID", DefaultProgramID)); err != nil {
		return nil, fmt.Errorf("config: RAFFLE_PROGRAM_ID: %w", err)
	}
	if configuration.OpsWallet, err = ton.ParseAccountID(get("RAFFLE_OPERATIONAL_WALLET", DefaultOpsWallet)); err != nil {
		return nil, fmt.Errorf("config: RAFFLE_OPERATIONAL_WALLET: %w", err)
	}
	if configuration.BurnWallet, err = ton.ParseAccountID(get("BURN_WALLET", DefaultBurnWallet)); err != nil {
		return nil, fmt.Errorf("config: BURN_WALLET: %w", err)
	}
	if raw := get("RAFFLE_AUTHORITY", ""); raw != "" {
		authority, err := ton.ParseAccountID(raw)
		if err != nil {
			return nil, fmt.Errorf("config: RAFFLE_AUTHORITY: %w", err)
		}
		configuration.Authority = &authority
	}

	configuration.TrackInterval, err = time.ParseDuration(get("TRACK_INTERVAL", DefaultTrackInterval.String()))
	if err != nil {
		return nil, fmt.Errorf("config: TRACK_INTERVAL: %w", err)
	}

	switch configuration.EntropyProvider {
	case EntropyProviderLocal, EntropyProviderLite:
	case EntropyProviderTonapi:
		if configuration.TonapiToken == "" {
			return nil, errors.New("config: TONAPI_TOKEN is required for the tonapi entropy provider")
		}
	default:
		return nil, fmt.Errorf("config: unknown ENTROPY_PROVIDER %q", configuration.EntropyProvider)
	}

	if configuration.OpsWallet == configuration.BurnWallet {
		return nil, errors.New("config: operational and burn wallets must differ")
	}

	return configuration, nil
}
