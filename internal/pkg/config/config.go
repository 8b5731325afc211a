package config

import (
	"log"
	"strings"
	"time"

	"github.com/finvero/ledgercore/internal/pkg/models"
	"github.com/spf13/viper"
)

// InitConfig loads configuration from the environment, with an
// optional env file for local development. Environment variables
// always win over file values.
func InitConfig(configPath string) *models.Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			log.Println("error loading config from file", err)
		}
	}

	return loadConfig(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "ledger-service")
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "dev")

	v.SetDefault("SERVER_HOST", "")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 30)

	v.SetDefault("DB_DRIVER", "pgx")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_ACCOUNT_TTL_SECONDS", 60)

	v.SetDefault("NSQ_ADDRESS", "localhost:4150")
	v.SetDefault("NSQ_CHANNEL", "ledger")

	v.SetDefault("GATEWAY_TIMEOUT_SECONDS", 10)

	v.SetDefault("LEDGER_TX_TIMEOUT_SECONDS", 10)
	v.SetDefault("LEDGER_DEFAULT_CURRENCY", "USD")

	v.SetDefault("CB_FAILURE_THRESHOLD", 5)
	v.SetDefault("CB_SUCCESS_THRESHOLD", 2)
	v.SetDefault("CB_RESET_TIMEOUT_SECONDS", 30)
	v.SetDefault("CB_MAX_HALF_OPEN_CALLS", 3)

	v.SetDefault("RETRY_MAX_RETRIES", 3)
	v.SetDefault("RETRY_BASE_DELAY_MS", 100)
	v.SetDefault("RETRY_MAX_DELAY_MS", 5000)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE_PATH", "")
}

func loadConfig(v *viper.Viper) *models.Config {
	configs := &models.Config{}

	configs.App.Name = v.GetString("APP_NAME")
	configs.App.Environment = v.GetString("APP_ENV")
	configs.App.Debug = v.GetBool("APP_DEBUG")
	configs.App.Version = v.GetString("APP_VERSION")

	configs.Server.Host = v.GetString("SERVER_HOST")
	configs.Server.Port = v.GetInt("SERVER_PORT")
	configs.Server.ReadTimeout = v.GetInt("SERVER_READ_TIMEOUT")
	configs.Server.WriteTimeout = v.GetInt("SERVER_WRITE_TIMEOUT")
	configs.Server.ShutdownTimeout = v.GetInt("SERVER_SHUTDOWN_TIMEOUT")
	configs.Server.APIKey = v.GetString("SERVER_API_KEY")

	configs.Database.Driver = v.GetString("DB_DRIVER")
	configs.Database.Host = v.GetString("DB_HOST")
	configs.Database.Port = v.GetInt("DB_PORT")
	configs.Database.Username = v.GetString("DB_USERNAME")
	configs.Database.Password = v.GetString("DB_PASSWORD")
	configs.Database.Database = v.GetString("DB_DATABASE")
	configs.Database.SSLMode = v.GetString("DB_SSL_MODE")
	configs.Database.MaxConns = v.GetInt("DB_MAX_CONNS")
	configs.Database.IdleConns = v.GetInt("DB_IDLE_CONNS")

	configs.Redis.Host = v.GetString("REDIS_HOST")
	configs.Redis.Port = v.GetInt("REDIS_PORT")
	configs.Redis.Password = v.GetString("REDIS_PASSWORD")
	configs.Redis.DB = v.GetInt("REDIS_DB")
	configs.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	configs.Redis.AccountTTL = time.Duration(v.GetInt("REDIS_ACCOUNT_TTL_SECONDS")) * time.Second

	configs.NSQ.Address = v.GetString("NSQ_ADDRESS")
	configs.NSQ.LookupdAddress = v.GetString("NSQ_LOOKUPD_ADDRESS")
	configs.NSQ.Channel = v.GetString("NSQ_CHANNEL")

	configs.JWT.Secret = v.GetString("JWT_SECRET")
	configs.JWT.Expiration = v.GetInt("JWT_EXPIRATION")
	configs.JWT.Issuer = v.GetString("JWT_ISSUER")

	configs.Gateway.BaseURL = v.GetString("GATEWAY_BASE_URL")
	configs.Gateway.MerchantID = v.GetString("GATEWAY_MERCHANT_ID")
	configs.Gateway.Timeout = time.Duration(v.GetInt("GATEWAY_TIMEOUT_SECONDS")) * time.Second

	configs.Ledger.TransactionTimeout = time.Duration(v.GetInt("LEDGER_TX_TIMEOUT_SECONDS")) * time.Second
	configs.Ledger.DefaultCurrency = v.GetString("LEDGER_DEFAULT_CURRENCY")

	configs.CircuitBreaker.FailureThreshold = v.GetUint32("CB_FAILURE_THRESHOLD")
	configs.CircuitBreaker.SuccessThreshold = v.GetUint32("CB_SUCCESS_THRESHOLD")
	configs.CircuitBreaker.ResetTimeout = time.Duration(v.GetInt("CB_RESET_TIMEOUT_SECONDS")) * time.Second
	configs.CircuitBreaker.MaxHalfOpenCalls = v.GetUint32("CB_MAX_HALF_OPEN_CALLS")

	configs.Retry.MaxRetries = v.GetInt("RETRY_MAX_RETRIES")
	configs.Retry.BaseDelay = time.Duration(v.GetInt("RETRY_BASE_DELAY_MS")) * time.Millisecond
	configs.Retry.MaxDelay = time.Duration(v.GetInt("RETRY_MAX_DELAY_MS")) * time.Millisecond

	configs.Logger.Level = v.GetString("LOG_LEVEL")
	configs.Logger.FilePath = v.GetString("LOG_FILE_PATH")

	return configs
}
