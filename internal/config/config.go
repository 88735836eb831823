package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Export   ExportConfig   `mapstructure:"export"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// OpenAIConfig holds the vision recognizer configuration
type OpenAIConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SourcesConfig holds source adapter configuration
type SourcesConfig struct {
	Folder   FolderSourceConfig   `mapstructure:"folder"`
	Mailbox  MailboxSourceConfig  `mapstructure:"mailbox"`
	Exchange ExchangeSourceConfig `mapstructure:"exchange"`
}

// FolderSourceConfig holds watched-folder source configuration
type FolderSourceConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Path         string        `mapstructure:"path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// MailboxSourceConfig holds mailbox source configuration
type MailboxSourceConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Folder       string        `mapstructure:"folder"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ExchangeSourceConfig holds invoice-exchange source configuration
type ExchangeSourceConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	TaxID        string        `mapstructure:"tax_id"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// PipelineConfig holds extraction and categorization pipeline configuration
type PipelineConfig struct {
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	BatchSize            int           `mapstructure:"batch_size"`
	AutoApprove          bool          `mapstructure:"auto_approve"`
	AutoApproveThreshold int           `mapstructure:"auto_approve_threshold"`
}

// ExportConfig holds export configuration
type ExportConfig struct {
	DefaultFormat string `mapstructure:"default_format"`
	OutputDir     string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/invoiceflow.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// OpenAI defaults
	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("openai.max_tokens", 2000)
	viper.SetDefault("openai.timeout", 60*time.Second)

	// Source defaults
	viper.SetDefault("sources.folder.enabled", false)
	viper.SetDefault("sources.folder.path", "inbox")
	viper.SetDefault("sources.folder.poll_interval", 30*time.Second)
	viper.SetDefault("sources.mailbox.enabled", false)
	viper.SetDefault("sources.mailbox.folder", "INBOX")
	viper.SetDefault("sources.mailbox.poll_interval", 2*time.Minute)
	viper.SetDefault("sources.exchange.enabled", false)
	viper.SetDefault("sources.exchange.poll_interval", 10*time.Minute)

	// Pipeline defaults
	viper.SetDefault("pipeline.poll_interval", 15*time.Second)
	viper.SetDefault("pipeline.batch_size", 10)
	viper.SetDefault("pipeline.auto_approve", false)
	viper.SetDefault("pipeline.auto_approve_threshold", 90)

	// Export defaults
	viper.SetDefault("export.default_format", "kpir")
	viper.SetDefault("export.output_dir", "exports")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("sources.exchange.tax_id", "EXCHANGE_TAX_ID")
	viper.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Sources.Exchange.Enabled && c.Sources.Exchange.TaxID == "" {
		return fmt.Errorf("sources.exchange.tax_id is required when the exchange source is enabled")
	}

	if c.Sources.Folder.Enabled && c.Sources.Folder.Path == "" {
		return fmt.Errorf("sources.folder.path is required when the folder source is enabled")
	}

	if c.Pipeline.AutoApprove {
		if c.Pipeline.AutoApproveThreshold < 1 || c.Pipeline.AutoApproveThreshold > 100 {
			return fmt.Errorf("pipeline.auto_approve_threshold must be between 1 and 100")
		}
	}

	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("pipeline.batch_size must be positive")
	}

	return nil
}
