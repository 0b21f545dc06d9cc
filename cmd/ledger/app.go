package main

import (
	"flag"
	"fmt"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/config"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/events/kafka"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/logging"
	"go.uber.org/zap"
)

var envFile = flag.String("env-file", config.DefaultEnvFile, "Optional dotenv file read before the LEDGER_ environment")

// bootstrap loads the configuration and builds the process logger.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(*envFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// newPublisher returns a Kafka publisher, or nil when no brokers are
// configured. Without one the engine publishes nothing.
func newPublisher(cfg config.KafkaConfig) *kafka.Publisher {
	if !cfg.Enabled() {
		return nil
	}
	return kafka.NewPublisher(cfg.BrokerList())
}
