package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// DefaultListenAddr is the address the relay binds when nothing is configured
	DefaultListenAddr = ":5000"

	// DefaultNotifyTimeout bounds each "server shutting down" notice
	DefaultNotifyTimeout = 300 * time.Millisecond

	// DefaultMaxMessageBytes caps the size of a single encoded message
	DefaultMaxMessageBytes = 64 * 1024
)

// Config holds the relay configuration
type Config struct {
	// ListenAddr is the host:port the relay listens on (tcp and websocket transports)
	ListenAddr string `env:"PAIRRELAY_LISTEN_ADDR,default=:5000" validate:"required_unless=Transport azrelay"`

	// Transport selects tcp, websocket or azrelay
	Transport Transport `env:"PAIRRELAY_TRANSPORT,default=tcp" validate:"required,oneof=tcp websocket azrelay"`

	// WebSocketPath is the HTTP path upgraded to WebSocket
	WebSocketPath string `env:"PAIRRELAY_WS_PATH,default=/chat" validate:"required_if=Transport websocket"`

	// NotifyTimeout bounds each shutdown notice sent to a peer
	NotifyTimeout time.Duration `env:"PAIRRELAY_NOTIFY_TIMEOUT,default=300ms" validate:"gt=0"`

	// MaxMessageBytes caps the encoded size of one message
	MaxMessageBytes int `env:"PAIRRELAY_MAX_MESSAGE_BYTES,default=65536" validate:"gt=0"`

	// ReadLimitBytes and ReadLimitPeriod rate limit what a single peer may send.
	// A zero ReadLimitBytes disables the limit.
	ReadLimitBytes  int           `env:"PAIRRELAY_READ_LIMIT_BYTES,default=0" validate:"gte=0"`
	ReadLimitPeriod time.Duration `env:"PAIRRELAY_READ_LIMIT_PERIOD,default=1s" validate:"required_with=ReadLimitBytes"`

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string `env:"PAIRRELAY_LOG_LEVEL,default=info" validate:"oneof=debug info warn warning error"`

	// LogFormat is console or json
	LogFormat string `env:"PAIRRELAY_LOG_FORMAT,default=console" validate:"oneof=console json"`

	// AzureNamespace is the Azure Relay namespace name (without .servicebus.windows.net)
	AzureNamespace string `env:"PAIRRELAY_AZURE_NAMESPACE" validate:"required_if=Transport azrelay"`

	// AzureHybridConnection is the Hybrid Connection the relay listens on
	AzureHybridConnection string `env:"PAIRRELAY_AZURE_HYBRID_CONNECTION" validate:"required_if=Transport azrelay"`

	// AzureKeyName and AzureKey select SAS authentication. When both are empty the
	// relay authenticates with DefaultAzureCredential.
	AzureKeyName string `env:"PAIRRELAY_AZURE_KEY_NAME" validate:"required_with=AzureKey"`
	AzureKey     string `env:"PAIRRELAY_AZURE_KEY" validate:"required_with=AzureKeyName"`

	// AzureSubscriptionID and AzureResourceGroup enable creating the Hybrid Connection at startup
	AzureSubscriptionID string `env:"PAIRRELAY_AZURE_SUBSCRIPTION_ID" validate:"required_with=AzureResourceGroup"`
	AzureResourceGroup  string `env:"PAIRRELAY_AZURE_RESOURCE_GROUP" validate:"required_with=AzureSubscriptionID"`
}

// Load reads an optional .env file, then the PAIRRELAY_* environment variables,
// applying defaults where values are not set
func Load() (*Config, error) {
	// A missing .env file is the normal case
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	return &Config{
		ListenAddr:      DefaultListenAddr,
		Transport:       TransportTCP,
		WebSocketPath:   "/chat",
		NotifyTimeout:   DefaultNotifyTimeout,
		MaxMessageBytes: DefaultMaxMessageBytes,
		ReadLimitPeriod: time.Second,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and reports every offending key at once
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	invalid := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		invalid = append(invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
}

// UsesSAS reports whether Azure Relay authentication uses a shared access key
func (c *Config) UsesSAS() bool {
	return c.AzureKeyName != "" && c.AzureKey != ""
}

// ManagesHybridConnection reports whether the relay should create its Hybrid Connection
func (c *Config) ManagesHybridConnection() bool {
	return c.AzureSubscriptionID != "" && c.AzureResourceGroup != ""
}
