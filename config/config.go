// Package config loads the runtime configuration for the promote-cleanup binaries
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/anudishu/promote-cleanup/internal/constants"
)

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Config holds all application configuration
type Config struct {
	// Compute backend
	Provider string `mapstructure:"provider"`
	Project  string `mapstructure:"project"`
	Zone     string `mapstructure:"zone"`

	// Promoted image metadata
	ImageFamily string `mapstructure:"image-family"`
	CreatedBy   string `mapstructure:"created-by"`

	// Polling and settle timings
	PollInterval      time.Duration `mapstructure:"poll-interval"`
	OperationTimeout  time.Duration `mapstructure:"operation-timeout"`
	StabilizeTimeout  time.Duration `mapstructure:"stabilize-timeout"`
	StabilizeInterval time.Duration `mapstructure:"stabilize-interval"`
	ImageSettle       time.Duration `mapstructure:"image-settle"`
	DeleteSettle      time.Duration `mapstructure:"delete-settle"`
	StageSettle       time.Duration `mapstructure:"stage-settle"`
	ForceStopSettle   time.Duration `mapstructure:"force-stop-settle"`

	// Reaper retry policy
	DeleteAttempts int           `mapstructure:"delete-attempts"`
	DeleteBackoff  time.Duration `mapstructure:"delete-backoff"`

	// Triggers
	HTTPPort    string `mapstructure:"http-port"`
	NATSURL     string `mapstructure:"nats-url"`
	NATSSubject string `mapstructure:"nats-subject"`
	NATSDurable string `mapstructure:"nats-durable"`
	// NATSAckWait is how long the server waits for an ack or progress before redelivering
	NATSAckWait time.Duration `mapstructure:"nats-ack-wait"`

	// Run ledger; disabled when DBHost is empty
	DBHost     string `mapstructure:"db-host"`
	DBPort     int    `mapstructure:"db-port"`
	DBUser     string `mapstructure:"db-user"`
	DBPassword string `mapstructure:"db-password"`
	DBName     string `mapstructure:"db-name"`
	DBSSL      bool   `mapstructure:"db-ssl"`
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", "gcp")
	v.SetDefault("project", constants.DefaultProject)
	v.SetDefault("zone", constants.DefaultZone)
	v.SetDefault("image-family", constants.DefaultImageFamily)
	v.SetDefault("created-by", constants.DefaultCreatedBy)

	v.SetDefault("poll-interval", 2*time.Second)
	v.SetDefault("operation-timeout", 15*time.Minute)
	v.SetDefault("stabilize-timeout", 60*time.Second)
	v.SetDefault("stabilize-interval", 5*time.Second)
	v.SetDefault("image-settle", 30*time.Second)
	v.SetDefault("delete-settle", 10*time.Second)
	v.SetDefault("stage-settle", 5*time.Second)
	v.SetDefault("force-stop-settle", 5*time.Second)

	v.SetDefault("delete-attempts", 3)
	v.SetDefault("delete-backoff", 5*time.Second)

	v.SetDefault("http-port", "8080")
	v.SetDefault("nats-url", "")
	v.SetDefault("nats-subject", "validation.promote-cleanup")
	v.SetDefault("nats-durable", "promote-cleanup")
	v.SetDefault("nats-ack-wait", 2*time.Minute)

	v.SetDefault("db-host", "")
	v.SetDefault("db-port", 5432)
	v.SetDefault("db-user", "postgres")
	v.SetDefault("db-password", "postgres")
	v.SetDefault("db-name", "postgres")
	v.SetDefault("db-ssl", false)
}

// New returns a viper instance wired to the environment and the optional config file
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	// Environment variables (will be PROMOTE_ZONE, PROMOTE_DB_HOST, etc.)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// The project keeps the names the Cloud Functions runtime exports.
	_ = v.BindEnv("project", constants.EnvPrefix+"_PROJECT", constants.EnvGCPProject, constants.EnvGoogleCloudProject)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.promote-cleanup")
	return v
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	return LoadFrom(New())
}

// LoadFrom unmarshals and validates the configuration held by v
func LoadFrom(v *viper.Viper) (*Config, error) {
	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider cannot be empty")
	}
	if c.Project == "" {
		return fmt.Errorf("project cannot be empty")
	}
	if c.Zone == "" {
		return fmt.Errorf("zone cannot be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive")
	}
	if c.OperationTimeout < 0 {
		return fmt.Errorf("operation-timeout must be non-negative")
	}
	if c.StabilizeInterval <= 0 {
		return fmt.Errorf("stabilize-interval must be positive")
	}
	if c.DeleteAttempts < 1 {
		return fmt.Errorf("delete-attempts must be at least 1")
	}
	if c.DeleteBackoff < 0 {
		return fmt.Errorf("delete-backoff must be non-negative")
	}
	if c.NATSAckWait < 0 {
		return fmt.Errorf("nats-ack-wait must be non-negative")
	}
	return nil
}

// LedgerEnabled reports whether runs should be recorded in the database
func (c *Config) LedgerEnabled() bool {
	return c.DBHost != ""
}
