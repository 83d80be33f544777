package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Lock      LockConfig      `mapstructure:"lock"`
	Leader    LeaderConfig    `mapstructure:"leader"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Instance  InstanceConfig  `mapstructure:"instance"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LockConfig tunes the per-item bid lock. Worst-case wait is Retries * RetryDelay.
type LockConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Retries    int           `mapstructure:"retries"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type ReconcileConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Schedule  string `mapstructure:"schedule"`
	BatchSize int    `mapstructure:"batch_size"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("mysql.dsn", "auction_user:auction_pass@tcp(localhost:3306)/auction_db?parseTime=true")
	v.SetDefault("mysql.max_open_conns", 25)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("lock.ttl", 2*time.Second)
	v.SetDefault("lock.retry_delay", 100*time.Millisecond)
	v.SetDefault("lock.retries", 20)
	v.SetDefault("leader.ttl", 30*time.Second)
	v.SetDefault("reconcile.enabled", true)
	v.SetDefault("reconcile.schedule", "@every 1m")
	v.SetDefault("reconcile.batch_size", 100)
	v.SetDefault("instance.id", "auction-house-1")
	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) {
	bindings := map[string]string{
		"server.port":             "SERVER_PORT",
		"server.host":             "SERVER_HOST",
		"redis.address":           "REDIS_ADDRESS",
		"redis.password":          "REDIS_PASSWORD",
		"redis.db":                "REDIS_DB",
		"mysql.dsn":               "MYSQL_DSN",
		"mysql.max_open_conns":    "MYSQL_MAX_OPEN_CONNS",
		"mysql.max_idle_conns":    "MYSQL_MAX_IDLE_CONNS",
		"mysql.conn_max_lifetime": "MYSQL_CONN_MAX_LIFETIME",
		"lock.ttl":                "LOCK_TTL",
		"lock.retry_delay":        "LOCK_RETRY_DELAY",
		"lock.retries":            "LOCK_RETRIES",
		"leader.ttl":              "LEADER_TTL",
		"reconcile.enabled":       "RECONCILE_ENABLED",
		"reconcile.schedule":      "RECONCILE_SCHEDULE",
		"reconcile.batch_size":    "RECONCILE_BATCH_SIZE",
		"instance.id":             "INSTANCE_ID",
		"log.level":               "LOG_LEVEL",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}

// Load reads config.yaml from the usual locations when present, then applies
// environment overrides on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/auction-house/")

	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return decode(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be positive, got %s", c.Lock.TTL)
	}
	if c.Lock.Retries <= 0 {
		return fmt.Errorf("lock.retries must be positive, got %d", c.Lock.Retries)
	}
	if c.Lock.RetryDelay < 0 {
		return fmt.Errorf("lock.retry_delay must not be negative, got %s", c.Lock.RetryDelay)
	}
	if c.Reconcile.BatchSize <= 0 {
		return fmt.Errorf("reconcile.batch_size must be positive, got %d", c.Reconcile.BatchSize)
	}
	return nil
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Server: %s:%d, Redis: %s, Lock: ttl=%s retries=%d delay=%s, Instance: %s",
		c.Server.Host,
		c.Server.Port,
		c.Redis.Address,
		c.Lock.TTL,
		c.Lock.Retries,
		c.Lock.RetryDelay,
		c.Instance.ID,
	)
}
