// Package config loads flowgated's runtime configuration with viper,
// following the same SetDefault/AutomaticEnv/Unmarshal shape the rest
// of the example pack uses for its own services.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for flowgated.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Codec     CodecConfig     `mapstructure:"codec"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds the gRPC listener settings.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// StorageConfig selects and configures the records/positions backends.
// The two are independent: positions storage is flowgate's own
// committed-offset ledger (spec §3's Committed-offsets map) and is
// never derived from a Kafka consumer group's own commits, regardless
// of which RecordsStorage backend is active.
type StorageConfig struct {
	// RecordsBackend is "memory" or "kafka".
	RecordsBackend string `mapstructure:"records_backend"`
	PartitionCount uint32 `mapstructure:"partition_count"`

	// PositionsBackend is "memory" or "bolt".
	PositionsBackend  string `mapstructure:"positions_backend"`
	PositionsBoltPath string `mapstructure:"positions_bolt_path"`
}

// KafkaConfig configures the franz-go backed records storage adapter.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// CodecConfig selects the optional compression pre-processor stage.
type CodecConfig struct {
	// Compression is "none", "snappy", "lz4", or "zstd".
	Compression string `mapstructure:"compression"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig configures the zerolog-backed logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from configPath (if non-empty), then
// environment variables prefixed FLOWGATE_, layered over defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("FLOWGATE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":6565")

	v.SetDefault("storage.records_backend", "memory")
	v.SetDefault("storage.partition_count", 4)
	v.SetDefault("storage.positions_backend", "memory")
	v.SetDefault("storage.positions_bolt_path", "flowgate-positions.db")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})

	v.SetDefault("codec.compression", "none")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9565")

	v.SetDefault("logging.level", "info")
}

// Validate rejects configurations that cannot build a working gateway.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	switch c.Storage.RecordsBackend {
	case "memory", "kafka":
	default:
		return fmt.Errorf("storage.records_backend must be \"memory\" or \"kafka\", got %q", c.Storage.RecordsBackend)
	}
	if c.Storage.RecordsBackend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when storage.records_backend is \"kafka\"")
	}
	switch c.Storage.PositionsBackend {
	case "memory", "bolt":
	default:
		return fmt.Errorf("storage.positions_backend must be \"memory\" or \"bolt\", got %q", c.Storage.PositionsBackend)
	}
	switch c.Codec.Compression {
	case "none", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("codec.compression must be one of none/snappy/lz4/zstd, got %q", c.Codec.Compression)
	}
	return nil
}
