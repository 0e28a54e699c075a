package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type PostgresConfig struct {
	Host     string `mapstructure:"Host"`
	Port     int    `mapstructure:"Port"`
	Account  string `mapstructure:"Account"`
	Password string `mapstructure:"Password"`
	DBName   string `mapstructure:"DBName"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.Account, c.Password, c.Host, c.Port, c.DBName)
}

type ClickhouseConfig struct {
	Enabled  bool   `mapstructure:"Enabled"`
	Host     string `mapstructure:"Host"`
	Port     int    `mapstructure:"Port"`
	Account  string `mapstructure:"Account"`
	Password string `mapstructure:"Password"`
	DBName   string `mapstructure:"DBName"`
}

func (c ClickhouseConfig) DSN() string {
	return fmt.Sprintf("clickhouse://%s:%s@%s:%d/%s",
		c.Account, c.Password, c.Host, c.Port, c.DBName)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"Enabled"`
	Host     string `mapstructure:"Host"`
	DB       int    `mapstructure:"DB"`
	Password string `mapstructure:"Password"`
}

type ProviderConfig struct {
	WalletDataBaseURL string   `mapstructure:"WalletDataBaseURL"`
	MarketDataBaseURL string   `mapstructure:"MarketDataBaseURL"`
	APIKeys           []string `mapstructure:"APIKeys"`
	TimeoutSeconds    int      `mapstructure:"TimeoutSeconds"`
	MaxRetries        int      `mapstructure:"MaxRetries"`
	RotateDelayMS     int      `mapstructure:"RotateDelayMS"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"Enabled"`
	BotToken string `mapstructure:"BotToken"`
	ChatID   string `mapstructure:"ChatID"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"Enabled"`
	Listen  string `mapstructure:"Listen"`
}

type LedgerConfig struct {
	PriceCeiling   float64 `mapstructure:"PriceCeiling"`
	ValueCeiling   float64 `mapstructure:"ValueCeiling"`
	AirdropEpsilon float64 `mapstructure:"AirdropEpsilon"`
	FallbackNative float64 `mapstructure:"FallbackNative"`
}

type DifferConfig struct {
	MinQuantity    float64 `mapstructure:"MinQuantity"`
	MinUSD         float64 `mapstructure:"MinUSD"`
	RatioThreshold float64 `mapstructure:"RatioThreshold"`
	USDFloor       float64 `mapstructure:"USDFloor"`
}

type ScorerConfig struct {
	ROIFloor        float64 `mapstructure:"ROIFloor"`
	WinrateFloor    float64 `mapstructure:"WinrateFloor"`
	TradeFloor      int     `mapstructure:"TradeFloor"`
	WeightROI       float64 `mapstructure:"WeightROI"`
	WeightWinrate   float64 `mapstructure:"WeightWinrate"`
	WeightTrades    float64 `mapstructure:"WeightTrades"`
	SmoothingAlpha  float64 `mapstructure:"SmoothingAlpha"`
	Percentile      float64 `mapstructure:"Percentile"`
	PlateauFraction float64 `mapstructure:"PlateauFraction"`
	TierPenalty     float64 `mapstructure:"TierPenalty"`
	BaseTier        int     `mapstructure:"BaseTier"`
}

type ConsensusConfig struct {
	LookbackDays  int     `mapstructure:"LookbackDays"`
	MinWhales     int     `mapstructure:"MinWhales"`
	MinQuality    float64 `mapstructure:"MinQuality"`
	MarketCapMin  float64 `mapstructure:"MarketCapMin"`
	MarketCapMax  float64 `mapstructure:"MarketCapMax"`
	ArchiveSignal bool    `mapstructure:"ArchiveSignal"`
}

type MigrationConfig struct {
	LookbackDays    int     `mapstructure:"LookbackDays"`
	SubWindowDays   int     `mapstructure:"SubWindowDays"`
	TransferPercent float64 `mapstructure:"TransferPercent"`
}

type EngineConfig struct {
	BatchSize    int    `mapstructure:"BatchSize"`
	BatchPauseMS int    `mapstructure:"BatchPauseMS"`
	CallPauseMS  int    `mapstructure:"CallPauseMS"`
	LogFile      string `mapstructure:"LogFile"`
	LogLevel     string `mapstructure:"LogLevel"`
}

type Config struct {
	Postgres   PostgresConfig   `mapstructure:"Postgres"`
	Clickhouse ClickhouseConfig `mapstructure:"Clickhouse"`
	Redis      RedisConfig      `mapstructure:"Redis"`
	Provider   ProviderConfig   `mapstructure:"Provider"`
	Telegram   TelegramConfig   `mapstructure:"Telegram"`
	Metrics    MetricsConfig    `mapstructure:"Metrics"`
	Ledger     LedgerConfig     `mapstructure:"Ledger"`
	Differ     DifferConfig     `mapstructure:"Differ"`
	Scorer     ScorerConfig     `mapstructure:"Scorer"`
	Consensus  ConsensusConfig  `mapstructure:"Consensus"`
	Migration  MigrationConfig  `mapstructure:"Migration"`
	Engine     EngineConfig     `mapstructure:"Engine"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Postgres.Host", "localhost")
	v.SetDefault("Postgres.Port", 5432)
	v.SetDefault("Clickhouse.Port", 9000)
	v.SetDefault("Redis.Host", "localhost:6379")

	v.SetDefault("Provider.TimeoutSeconds", 15)
	v.SetDefault("Provider.MaxRetries", 3)
	v.SetDefault("Provider.RotateDelayMS", 2000)

	v.SetDefault("Ledger.PriceCeiling", 1_000_000)
	v.SetDefault("Ledger.ValueCeiling", 50_000_000)
	v.SetDefault("Ledger.AirdropEpsilon", 0.01)
	v.SetDefault("Ledger.FallbackNative", 150)

	v.SetDefault("Differ.MinQuantity", 0.000001)
	v.SetDefault("Differ.MinUSD", 1)
	v.SetDefault("Differ.RatioThreshold", 0.05)
	v.SetDefault("Differ.USDFloor", 100)

	v.SetDefault("Scorer.ROIFloor", 0)
	v.SetDefault("Scorer.WinrateFloor", 40)
	v.SetDefault("Scorer.TradeFloor", 5)
	v.SetDefault("Scorer.WeightROI", 0.5)
	v.SetDefault("Scorer.WeightWinrate", 0.3)
	v.SetDefault("Scorer.WeightTrades", 0.2)
	v.SetDefault("Scorer.SmoothingAlpha", 30)
	v.SetDefault("Scorer.Percentile", 0.6)
	v.SetDefault("Scorer.PlateauFraction", 0.15)
	v.SetDefault("Scorer.TierPenalty", 0.05)
	v.SetDefault("Scorer.BaseTier", 1)

	v.SetDefault("Consensus.LookbackDays", 5)
	v.SetDefault("Consensus.MinWhales", 2)
	v.SetDefault("Consensus.MinQuality", 0.3)
	v.SetDefault("Consensus.MarketCapMin", 100_000)
	v.SetDefault("Consensus.MarketCapMax", 500_000_000)
	v.SetDefault("Consensus.ArchiveSignal", true)

	v.SetDefault("Migration.LookbackDays", 7)
	v.SetDefault("Migration.SubWindowDays", 2)
	v.SetDefault("Migration.TransferPercent", 0.70)

	v.SetDefault("Engine.BatchSize", 5)
	v.SetDefault("Engine.BatchPauseMS", 3000)
	v.SetDefault("Engine.CallPauseMS", 500)
	v.SetDefault("Engine.LogLevel", "info")
}

// Load reads the yaml file at configPath and overlays SWE_* environment
// variables (e.g. SWE_POSTGRES_PASSWORD overrides Postgres.Password).
// A missing file is not an error; missing required credentials are.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SWE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required credentials. Missing credentials abort the run
// at startup rather than surfacing mid-pass.
func (c *Config) Validate() error {
	if c.Postgres.Account == "" || c.Postgres.DBName == "" {
		return fmt.Errorf("config: postgres account and dbname are required")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("config: telegram enabled but bot token or chat id missing")
	}
	if c.Clickhouse.Enabled && c.Clickhouse.Host == "" {
		return fmt.Errorf("config: clickhouse enabled but host missing")
	}
	if c.Migration.SubWindowDays > c.Migration.LookbackDays {
		return fmt.Errorf("config: migration sub-window exceeds lookback window")
	}
	return nil
}
