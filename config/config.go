package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Bookmarks BookmarksConfig `yaml:"bookmarks"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required,gt=0,lte=65535"`
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name" validate:"required"`
	SSLMode  string `yaml:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
}

// Kafka опциональна: без host события о захвате треков не публикуются.
type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port" validate:"required_with=Host,omitempty,gt=0,lte=65535"`
	TrackingClaimedTopicName string `yaml:"tracking_claimed_topic_name"`
}

// Redis нужен только для rate limit.
type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"required_with=Host,omitempty,gt=0,lte=65535"`
}

type BookmarksConfig struct {
	HTTPAddr           string   `yaml:"http_addr"`
	LogLevel           string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	ResolveConcurrency int      `yaml:"resolve_concurrency" validate:"gte=1,lte=64"`
	ClaimOrphans       *bool    `yaml:"claim_orphans"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" validate:"gte=0"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" validate:"dive,url"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// applyEnv: секреты и адреса можно переопределить окружением (в т.ч. из .env).
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("POSTGRES_HOST"); ok {
		c.Database.Host = v
	}
	if v, ok := os.LookupEnv("POSTGRES_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			c.Database.Port = p
		}
	}
	if v, ok := os.LookupEnv("POSTGRES_USER"); ok {
		c.Database.Username = v
	}
	if v, ok := os.LookupEnv("POSTGRES_PASSWORD"); ok {
		c.Database.Password = v
	}
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok {
		c.Bookmarks.HTTPAddr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Kafka.TrackingClaimedTopicName == "" {
		c.Kafka.TrackingClaimedTopicName = "tracking.claimed"
	}
	if c.Bookmarks.HTTPAddr == "" {
		c.Bookmarks.HTTPAddr = ":8080"
	}
	if c.Bookmarks.LogLevel == "" {
		c.Bookmarks.LogLevel = "info"
	}
	if c.Bookmarks.ResolveConcurrency <= 0 {
		c.Bookmarks.ResolveConcurrency = 1
	}
	if c.Bookmarks.ClaimOrphans == nil {
		claim := true
		c.Bookmarks.ClaimOrphans = &claim
	}
}

func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

func (k KafkaConfig) Enabled() bool { return k.Host != "" }

func (k KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

func (r RedisConfig) Enabled() bool { return r.Host != "" }

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
