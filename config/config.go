package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ServiceBus ServiceBusConfig
	NewRelic   NewRelicConfig
	Lifecycle  LifecycleConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int
	Mode string // debug, release, test
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Debug        bool
	MaxIdleConns int
	MaxOpenConns int
	QueryTimeout time.Duration
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// ServiceBusConfig holds the Azure Service Bus configuration
type ServiceBusConfig struct {
	Enabled          bool
	ConnectionString string
	QueueName        string
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LifecycleConfig holds the participation lifecycle policy configuration
type LifecycleConfig struct {
	// StrictTransitions rejects status writes on records already in a
	// terminal status instead of overwriting them unconditionally.
	StrictTransitions bool
}

// InitConfig initializes the configuration using Viper
func InitConfig(cfgFile string) error {
	setDefaults()

	// Use config file from the flag if provided
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/eventhub")
		viper.SetConfigName("config")
	}

	// EVENTHUB_SERVER_PORT overrides server.port, and so on
	viper.SetEnvPrefix("EVENTHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, using defaults and environment variables
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8097)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "eventhub")
	viper.SetDefault("database.password", "eventhub")
	viper.SetDefault("database.dbname", "eventhub_db")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.debug", false)
	viper.SetDefault("database.maxidleconns", 10)
	viper.SetDefault("database.maxopenconns", 100)
	viper.SetDefault("database.querytimeout", "5s")

	// Redis defaults
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", "1h")

	// Service Bus defaults - no default connection string for security
	viper.SetDefault("servicebus.enabled", false)
	viper.SetDefault("servicebus.queuename", "eventhub-notifications")

	// New Relic defaults
	viper.SetDefault("newrelic.appname", "EventHub Local")
	viper.SetDefault("newrelic.enabled", false)

	// Lifecycle defaults: unconditional overwrite, matching the
	// behaviour the admin dashboard was built against
	viper.SetDefault("lifecycle.stricttransitions", false)
}

// Load loads the configuration
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: viper.GetInt("server.port"),
			Mode: viper.GetString("server.mode"),
		},
		Database: DatabaseConfig{
			Host:         viper.GetString("database.host"),
			Port:         viper.GetInt("database.port"),
			User:         viper.GetString("database.user"),
			Password:     viper.GetString("database.password"),
			DBName:       viper.GetString("database.dbname"),
			SSLMode:      viper.GetString("database.sslmode"),
			Debug:        viper.GetBool("database.debug"),
			MaxIdleConns: viper.GetInt("database.maxidleconns"),
			MaxOpenConns: viper.GetInt("database.maxopenconns"),
			QueryTimeout: viper.GetDuration("database.querytimeout"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetInt("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			TTL:      viper.GetDuration("redis.ttl"),
		},
		ServiceBus: ServiceBusConfig{
			Enabled:          viper.GetBool("servicebus.enabled"),
			ConnectionString: viper.GetString("servicebus.connectionstring"),
			QueueName:        viper.GetString("servicebus.queuename"),
		},
		NewRelic: NewRelicConfig{
			AppName:    viper.GetString("newrelic.appname"),
			LicenseKey: viper.GetString("newrelic.licensekey"),
			Enabled:    viper.GetBool("newrelic.enabled"),
		},
		Lifecycle: LifecycleConfig{
			StrictTransitions: viper.GetBool("lifecycle.stricttransitions"),
		},
	}, nil
}
