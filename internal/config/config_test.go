package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":6565", cfg.Server.ListenAddr)
	require.Equal(t, "memory", cfg.Storage.RecordsBackend)
	require.Equal(t, uint32(4), cfg.Storage.PartitionCount)
	require.Equal(t, "memory", cfg.Storage.PositionsBackend)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "none", cfg.Codec.Compression)
	require.True(t, cfg.Metrics.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowgate.yaml")
	contents := "storage:\n  records_backend: kafka\nkafka:\n  brokers:\n    - broker-1:9092\n    - broker-2:9092\ncodec:\n  compression: zstd\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "kafka", cfg.Storage.RecordsBackend)
	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "zstd", cfg.Codec.Compression)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Storage.RecordsBackend = "tape"
	require.Error(t, cfg.Validate())

	cfg.Storage.RecordsBackend = "kafka"
	cfg.Kafka.Brokers = nil
	require.Error(t, cfg.Validate())

	cfg.Storage.RecordsBackend = "memory"
	cfg.Storage.PositionsBackend = "disk"
	require.Error(t, cfg.Validate())

	cfg.Storage.PositionsBackend = "memory"
	cfg.Codec.Compression = "gzip"
	require.Error(t, cfg.Validate())
}
