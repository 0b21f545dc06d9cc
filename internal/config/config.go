package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "LEDGER"

// DefaultEnvFile is the dotenv file read when no other is named.
const DefaultEnvFile = ".env"

const (
	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"
)

// Config holds the runtime settings of the ledger binary.
type Config struct {
	Log      LogConfig
	HTTP     HTTPConfig
	Kafka    KafkaConfig
	Postgres PostgresConfig
}

type LogConfig struct {
	Level       string
	Environment string
}

type HTTPConfig struct {
	Addr string
}

// KafkaConfig is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// BrokerList splits the comma separated broker addresses.
func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (k KafkaConfig) Enabled() bool {
	return len(k.BrokerList()) > 0
}

// PostgresConfig is disabled when DSN is empty.
type PostgresConfig struct {
	DSN string
}

func (p PostgresConfig) Enabled() bool {
	return p.DSN != ""
}

// LoadFrom reads envFile, then the LEDGER_ environment. A missing file is
// ignored; variables already set in the environment win over the file.
func LoadFrom(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", EnvironmentProduction)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "ledger.events")
	v.SetDefault("postgres.dsn", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Log.Environment {
	case EnvironmentProduction, EnvironmentDevelopment:
	default:
		return fmt.Errorf("invalid log environment %q", c.Log.Environment)
	}

	var level zapcore.Level
	if err := level.Set(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	return nil
}
