package models

import "time"

// Config represents application configuration
type Config struct {
	App            AppConfig
	Server         ServerConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	NSQ            NSQConfig
	JWT            JWTConfig
	Gateway        GatewayConfig
	Ledger         LedgerConfig
	CircuitBreaker CircuitBreakerConfig
	Retry          RetryConfig
	Logger         LoggerConfig
}

// AppConfig contains application-specific configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
	APIKey          string
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	Username  string
	Password  string
	Database  string
	SSLMode   string
	MaxConns  int
	IdleConns int
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	// AccountTTL is how long cached account snapshots stay valid
	AccountTTL time.Duration
}

// NSQConfig contains NSQ connection configuration
type NSQConfig struct {
	Address        string
	LookupdAddress string
	Channel        string
}

// JWTConfig contains JWT configuration for the admin endpoints
type JWTConfig struct {
	Secret     string
	Expiration int // in minutes
	Issuer     string
}

// GatewayConfig contains payment gateway client configuration
type GatewayConfig struct {
	BaseURL    string
	MerchantID string
	Timeout    time.Duration
}

// LedgerConfig contains ledger execution configuration
type LedgerConfig struct {
	// TransactionTimeout bounds a single serializable execution attempt
	TransactionTimeout time.Duration
	DefaultCurrency    string
}

// CircuitBreakerConfig contains circuit breaker thresholds shared by
// the store, cache, queue and payment gateway breakers
type CircuitBreakerConfig struct {
	FailureThreshold uint32
	SuccessThreshold uint32
	ResetTimeout     time.Duration
	MaxHalfOpenCalls uint32
}

// RetryConfig contains retry/backoff configuration for conflict recovery
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level    string
	FilePath string
}
