// Package config manages application configuration loading and validation.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coachpo/borderless/internal/domain/market"
	"github.com/coachpo/borderless/internal/infra/logging"
)

// LedgerConfig describes the ledger node's JSON-RPC endpoint.
type LedgerConfig struct {
	Address            string        `yaml:"address"`
	Scookie            string        `yaml:"scookie"`
	RPCPath            string        `yaml:"rpcPath"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxRetries         int           `yaml:"maxRetries"`
	RequestsPerSecond  float64       `yaml:"requestsPerSecond"`
	Burst              int           `yaml:"burst"`
	InsecureSkipVerify bool          `yaml:"insecureSkipVerify"`
}

// PricingConfig tunes the price resolver.
type PricingConfig struct {
	Base          string        `yaml:"base"`
	Quote         string        `yaml:"quote"`
	FirstPageSize int           `yaml:"firstPageSize"`
	NextPageSize  int           `yaml:"nextPageSize"`
	MaxPages      int           `yaml:"maxPages"`
	Deadline      time.Duration `yaml:"deadline"`
	// HistoryDeadline bounds the historical scan within Deadline. Zero means 75% of Deadline.
	HistoryDeadline time.Duration `yaml:"historyDeadline"`
	LiveOnly        bool          `yaml:"liveOnly"`
	Prefetch        bool          `yaml:"prefetch"`
}

// Pair returns the configured trading pair.
func (c PricingConfig) Pair() (market.Pair, error) {
	return market.NewPair(c.Base, c.Quote)
}

// ChainConfig overrides or extends the built-in unit table for one chain.
type ChainConfig struct {
	Exponent  int32  `yaml:"exponent"`
	HumanUnit string `yaml:"humanUnit"`
}

// TelemetryConfig configures OTLP exporters (metrics only).
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// DatabaseConfig controls PostgreSQL connectivity and migration behaviour.
type DatabaseConfig struct {
	Enabled           bool          `yaml:"enabled"`
	DSN               string        `yaml:"dsn"`
	MaxConns          int32         `yaml:"maxConns"`
	MinConns          int32         `yaml:"minConns"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod"`
	RunMigrations     bool          `yaml:"runMigrations"`
}

func (c *DatabaseConfig) applyDefaults() {
	c.DSN = strings.TrimSpace(c.DSN)
	if c.DSN == "" {
		c.DSN = "postgresql://localhost:5432/borderless"
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 4
	}
	if c.MinConns < 0 {
		c.MinConns = 0
	}
	if c.MinConns > c.MaxConns {
		c.MinConns = c.MaxConns
	}
	if c.MaxConnLifetime <= 0 {
		c.MaxConnLifetime = 30 * time.Minute
	}
	if c.MaxConnIdleTime <= 0 {
		c.MaxConnIdleTime = 5 * time.Minute
	}
	if c.HealthCheckPeriod <= 0 {
		c.HealthCheckPeriod = 30 * time.Second
	}
}

func (c DatabaseConfig) validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("dsn required")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("maxConns must be >0")
	}
	if c.MinConns < 0 {
		return fmt.Errorf("minConns must be >=0")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("minConns must be <= maxConns")
	}
	return nil
}

// AppConfig is the unified borderless configuration sourced from YAML.
type AppConfig struct {
	Environment Environment            `yaml:"environment"`
	Ledger      LedgerConfig           `yaml:"ledger"`
	Pricing     PricingConfig          `yaml:"pricing"`
	Chains      map[string]ChainConfig `yaml:"chains"`
	Logging     logging.Config         `yaml:"logging"`
	Telemetry   TelemetryConfig        `yaml:"telemetry"`
	Database    DatabaseConfig         `yaml:"database"`
}

// Default returns the configuration used when no file is present.
func Default() AppConfig {
	cfg := AppConfig{
		Environment: EnvDev,
		Ledger: LedgerConfig{
			RPCPath:    "/rpc",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			Burst:      1,
		},
		Pricing: PricingConfig{
			Base:          market.DefaultPair.Base,
			Quote:         market.DefaultPair.Quote,
			FirstPageSize: 5000,
			NextPageSize:  1000,
			Deadline:      60 * time.Second,
		},
		Logging: logging.Config{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		Telemetry: TelemetryConfig{ServiceName: "borderless"},
	}
	cfg.Database.applyDefaults()
	return cfg
}

// ResolvePath picks the config path from an explicit flag, then EnvVar, then DefaultPath.
func ResolvePath(flagValue string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv(EnvVar)); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads and validates an AppConfig from the provided YAML file.
// Values absent from the file keep their defaults.
func Load(ctx context.Context, configPath string) (AppConfig, error) {
	_ = ctx

	reader, closer, err := openConfigFile(configPath)
	if err != nil {
		return AppConfig{}, err
	}
	defer closer()

	bytes, err := io.ReadAll(reader)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalise(); err != nil {
		return AppConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when the file does not exist.
// The boolean reports whether the configuration came from the file.
func LoadOrDefault(ctx context.Context, configPath string) (AppConfig, bool, error) {
	cfg, err := Load(ctx, configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	if err != nil {
		return AppConfig{}, false, err
	}
	return cfg, true, nil
}

func (c *AppConfig) normalise() error {
	c.Environment = Environment(strings.ToLower(strings.TrimSpace(string(c.Environment))))
	c.Ledger.Address = strings.TrimSpace(c.Ledger.Address)
	c.Ledger.Scookie = strings.TrimSpace(c.Ledger.Scookie)
	c.Ledger.RPCPath = strings.TrimSpace(c.Ledger.RPCPath)
	if c.Ledger.RPCPath == "" {
		c.Ledger.RPCPath = "/rpc"
	}
	if c.Ledger.Burst <= 0 {
		c.Ledger.Burst = 1
	}

	c.Pricing.Base = normalizeChainIdentifier(c.Pricing.Base)
	c.Pricing.Quote = normalizeChainIdentifier(c.Pricing.Quote)

	normalised := make(map[string]ChainConfig, len(c.Chains))
	for key, value := range c.Chains {
		chain := normalizeChainIdentifier(key)
		if chain == "" {
			return fmt.Errorf("chain identifier required")
		}
		if _, exists := normalised[chain]; exists {
			return fmt.Errorf("duplicate chain %q", chain)
		}
		value.HumanUnit = strings.TrimSpace(value.HumanUnit)
		normalised[chain] = value
	}
	c.Chains = normalised

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.OutputFile = strings.TrimSpace(c.Logging.OutputFile)
	c.Telemetry.OTLPEndpoint = strings.TrimSpace(c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = strings.TrimSpace(c.Telemetry.ServiceName)

	c.Database.applyDefaults()

	return nil
}

// Validate performs semantic validation on the configuration.
func (c AppConfig) Validate() error {
	switch c.Environment {
	case EnvDev, EnvStaging, EnvProd:
	default:
		return fmt.Errorf("environment must be one of dev, staging, prod")
	}

	if c.Ledger.Timeout <= 0 {
		return fmt.Errorf("ledger timeout must be >0")
	}
	if c.Ledger.MaxRetries < 0 {
		return fmt.Errorf("ledger maxRetries must be >=0")
	}
	if c.Ledger.RequestsPerSecond < 0 {
		return fmt.Errorf("ledger requestsPerSecond must be >=0")
	}

	if _, err := c.Pricing.Pair(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	if c.Pricing.FirstPageSize <= 0 || c.Pricing.NextPageSize <= 0 {
		return fmt.Errorf("pricing page sizes must be >0")
	}
	if c.Pricing.MaxPages < 0 {
		return fmt.Errorf("pricing maxPages must be >=0")
	}
	if c.Pricing.Deadline <= 0 {
		return fmt.Errorf("pricing deadline must be >0")
	}
	if c.Pricing.HistoryDeadline < 0 || (c.Pricing.HistoryDeadline > 0 && c.Pricing.HistoryDeadline >= c.Pricing.Deadline) {
		return fmt.Errorf("pricing historyDeadline must be >=0 and below deadline")
	}

	units, err := c.UnitTable()
	if err != nil {
		return fmt.Errorf("chains: %w", err)
	}
	for _, chain := range []string{c.Pricing.Base, c.Pricing.Quote} {
		if _, ok := units.Lookup(chain); !ok {
			return fmt.Errorf("pricing chain %q has no unit definition", chain)
		}
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		return fmt.Errorf("telemetry serviceName required")
	}

	if c.Database.Enabled {
		if err := c.Database.validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	return nil
}

// UnitTable builds the immutable unit table: built-in chains plus configured overrides.
func (c AppConfig) UnitTable() (*market.UnitTable, error) {
	if len(c.Chains) == 0 {
		return market.DefaultUnitTable(), nil
	}
	overrides := make(map[string]market.UnitInfo, len(c.Chains))
	for chain, info := range c.Chains {
		overrides[chain] = market.UnitInfo{Exponent: info.Exponent, HumanUnit: info.HumanUnit}
	}
	return market.DefaultUnitTable().With(overrides)
}

func openConfigFile(path string) (io.Reader, func(), error) {
	candidate := strings.TrimSpace(path)
	candidate = filepath.Clean(candidate)

	file, err := os.Open(candidate) // #nosec G304 -- path is operator controlled.
	if err != nil {
		return nil, nil, fmt.Errorf("open app config: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}
